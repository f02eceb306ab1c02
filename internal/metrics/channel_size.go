package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cryptonorm/internal/channel"
	"cryptonorm/logger"
)

var (
	channelLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptonorm_channel_length",
			Help: "Messages waiting in a pipeline channel",
		},
		[]string{"buffer"},
	)
	channelDropped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptonorm_channel_dropped",
			Help: "Messages dropped because a pipeline channel was full",
		},
		[]string{"buffer"},
	)
)

// StartChannelSizeMetrics samples the occupancy and drop counts of the raw and
// normalized channels every interval until ctx is done. interval <= 0 means
// one second.
func StartChannelSizeMetrics(ctx context.Context, channels *channel.Channels, interval time.Duration) {
	if channels == nil {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}

	log := logger.GetLogger()
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sampleChannels(log, channels)
			}
		}
	}()
}

func sampleChannels(log *logger.Log, channels *channel.Channels) {
	stats := channels.GetStats()
	samples := []struct {
		buffer   string
		length   int
		capacity int
		dropped  int64
	}{
		{"raw", len(channels.Raw), cap(channels.Raw), stats.RawDropped},
		{"norm", len(channels.Norm), cap(channels.Norm), stats.NormDropped},
	}
	for _, s := range samples {
		channelLength.WithLabelValues(s.buffer).Set(float64(s.length))
		channelDropped.WithLabelValues(s.buffer).Set(float64(s.dropped))
		log.LogMetric("channel_buffers", s.buffer+"_buffer_length", s.length, "gauge", logger.Fields{
			"buffer":   s.buffer,
			"capacity": s.capacity,
		})
	}
}
