package txbit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cryptonorm/config"
	"cryptonorm/internal/channel"
	"cryptonorm/logger"
	"cryptonorm/models"
)

// MarketLookup resolves a unified symbol to the venue market.
type MarketLookup interface {
	BySymbol(symbol string) (*models.Market, bool)
}

type pollJob struct {
	kind     models.Kind
	interval time.Duration
	fetch    func(ctx context.Context, marketID string) (Result, error)
}

// Poller pulls tickers, trades and order books for the configured symbols on
// fixed, wall-clock aligned intervals and forwards the result containers to
// the raw channel.
type Poller struct {
	cfg     *config.Config
	client  *Client
	markets MarketLookup
	ch      *channel.Channels
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

func NewPoller(cfg *config.Config, client *Client, markets MarketLookup, ch *channel.Channels) *Poller {
	return &Poller{
		cfg:     cfg,
		client:  client,
		markets: markets,
		ch:      ch,
		wg:      &sync.WaitGroup{},
		log:     logger.GetLogger(),
	}
}

func (p *Poller) jobs() []pollJob {
	v := p.cfg.Venue
	jobs := []pollJob{
		{kind: models.KindTicker, interval: ms(v.TickerIntervalMs), fetch: p.client.MarketSummary},
		{kind: models.KindTrade, interval: ms(v.TradeIntervalMs), fetch: p.client.MarketHistory},
		{kind: models.KindOrderBook, interval: ms(v.BookIntervalMs), fetch: func(ctx context.Context, id string) (Result, error) {
			return p.client.OrderBook(ctx, id, v.OrderBookDepth)
		}},
	}
	enabled := jobs[:0]
	for _, j := range jobs {
		if j.interval > 0 {
			enabled = append(enabled, j)
		}
	}
	return enabled
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("txbit_poller").WithFields(logger.Fields{"operation": "Start"})
	jobs := p.jobs()
	if len(jobs) == 0 || len(p.cfg.Venue.Symbols) == 0 {
		log.Warn("no symbols or intervals configured, poller idle")
		return nil
	}

	for _, sym := range p.cfg.Venue.Symbols {
		for _, job := range jobs {
			p.wg.Add(1)
			go p.pollWorker(sym, job)
		}
	}
	log.WithFields(logger.Fields{"symbols": p.cfg.Venue.Symbols, "jobs": len(jobs)}).Info("txbit poller started")
	return nil
}

func (p *Poller) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.log.WithComponent("txbit_poller").Info("stopping txbit poller")
	p.wg.Wait()
	p.log.WithComponent("txbit_poller").Info("txbit poller stopped")
}

// MarketID returns the venue id for a unified symbol. Symbols missing from
// the catalog are re-joined with the venue separator.
func (p *Poller) MarketID(symbol string) string {
	if p.markets != nil {
		if m, ok := p.markets.BySymbol(symbol); ok && m != nil {
			return m.ID
		}
	}
	sep := p.cfg.Venue.Profile.MarketIDSeparator
	return strings.Replace(symbol, "/", sep, 1)
}

func (p *Poller) pollWorker(symbol string, job pollJob) {
	defer p.wg.Done()
	log := p.log.WithComponent("txbit_poller").WithFields(logger.Fields{"symbol": symbol, "kind": string(job.kind)})

	now := time.Now()
	next := now.Truncate(job.interval).Add(job.interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	for {
		select {
		case <-p.ctx.Done():
			log.Debug("worker stopped due to context cancellation")
			return
		case <-timer.C:
			start := time.Now()
			p.poll(symbol, job)
			if d := time.Since(start); d > job.interval {
				log.WithFields(logger.Fields{"duration": d.Milliseconds(), "interval": job.interval.Milliseconds()}).Warn("fetch took longer than interval")
			}
			next = start.Truncate(job.interval).Add(job.interval)
			timer.Reset(time.Until(next))
		}
	}
}

// poll performs one fetch and forwards the result. A response without a
// result is forwarded as JSON null so the processor reports it.
func (p *Poller) poll(symbol string, job pollJob) {
	log := p.log.WithComponent("txbit_poller").WithFields(logger.Fields{"symbol": symbol, "kind": string(job.kind)})

	res, err := job.fetch(p.ctx, p.MarketID(symbol))
	if err != nil {
		if p.ctx.Err() == nil {
			log.WithError(err).Warn("fetch failed")
		}
		return
	}
	data := res.Raw
	if !res.Present {
		data = []byte("null")
	}

	msg := models.RawMessage{
		Venue:     p.cfg.Venue.Profile.VenueID,
		Kind:      job.kind,
		Symbol:    symbol,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if p.ch.SendRaw(p.ctx, msg) {
		logger.LogDataFlowEntry(log, "txbit_api", "raw_channel", len(data), "bytes")
	}
}
