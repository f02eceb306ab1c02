// Package channel holds the buffered channels connecting the poller, the
// normalization workers and the writer.
package channel

import (
	"context"
	"sync"

	"cryptonorm/logger"
	"cryptonorm/models"
)

type Stats struct {
	RawSent     int64
	NormSent    int64
	RawDropped  int64
	NormDropped int64
}

// Channels carries raw venue responses to the processor and normalized
// batches to the writer. Sends never block: a full channel drops the message
// and counts it.
type Channels struct {
	Raw  chan models.RawMessage
	Norm chan models.Batch

	stats     Stats
	statsMu   sync.RWMutex
	closeOnce sync.Once
	log       *logger.Log
}

func NewChannels(rawBufferSize, normBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Raw:  make(chan models.RawMessage, rawBufferSize),
		Norm: make(chan models.Batch, normBufferSize),
		log:  log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"raw_buffer_size":  rawBufferSize,
		"norm_buffer_size": normBufferSize,
	}).Info("channels initialized")

	return c
}

// Close closes both channels. Later calls are no-ops.
func (c *Channels) Close() {
	c.closeOnce.Do(func() {
		close(c.Raw)
		close(c.Norm)
		c.log.WithComponent("channels").Info("channels closed")
	})
}

func (c *Channels) count(field *int64) {
	c.statsMu.Lock()
	*field++
	c.statsMu.Unlock()
}

func (c *Channels) SendRaw(ctx context.Context, msg models.RawMessage) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case c.Raw <- msg:
		c.count(&c.stats.RawSent)
		logger.RecordCount("raw_channel", 1, len(msg.Data))
		return true
	default:
		c.count(&c.stats.RawDropped)
		c.log.WithComponent("channels").WithFields(logger.Fields{
			"venue":  msg.Venue,
			"kind":   msg.Kind,
			"symbol": msg.Symbol,
		}).Warn("raw channel full, message dropped")
		return false
	}
}

func (c *Channels) SendNorm(ctx context.Context, batch models.Batch) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case c.Norm <- batch:
		c.count(&c.stats.NormSent)
		logger.RecordCount("norm_channel", 1, 0)
		return true
	default:
		c.count(&c.stats.NormDropped)
		c.log.WithComponent("channels").WithFields(logger.Fields{
			"batch_id": batch.BatchID,
			"kind":     batch.Kind,
			"records":  batch.RecordCount,
		}).Warn("normalized channel full, batch dropped")
		return false
	}
}

func (c *Channels) GetStats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}
