// Package catalog keeps the current market listing of the venue. Readers see
// an immutable snapshot; a reload swaps in a new one atomically.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"cryptonorm/logger"
	"cryptonorm/models"
	"cryptonorm/processor"
	"cryptonorm/reader/txbit"
)

// ErrUnknownSymbol is returned by Market for symbols missing from the
// snapshot.
var ErrUnknownSymbol = errors.New("unknown market symbol")

// Fetcher returns the raw market listing.
type Fetcher interface {
	Markets(ctx context.Context) (txbit.Result, error)
}

// Snapshot is never mutated after it is published.
type Snapshot struct {
	Markets  []models.Market
	LoadedAt time.Time

	byID     models.MarketsByID
	bySymbol map[string]*models.Market
}

func newSnapshot(markets []models.Market) *Snapshot {
	s := &Snapshot{Markets: markets, LoadedAt: time.Now().UTC()}
	s.byID, s.bySymbol = processor.IndexMarkets(s.Markets)
	return s
}

type Catalog struct {
	engine  *processor.Engine
	fetcher Fetcher
	snap    atomic.Pointer[Snapshot]
	group   singleflight.Group
	log     *logger.Log
}

func New(engine *processor.Engine, fetcher Fetcher) *Catalog {
	return &Catalog{engine: engine, fetcher: fetcher, log: logger.GetLogger()}
}

// Load returns the cached snapshot unless reload is set or nothing has been
// loaded yet. Concurrent loads share one request.
func (c *Catalog) Load(ctx context.Context, reload bool) (*Snapshot, error) {
	if s := c.snap.Load(); s != nil && !reload {
		return s, nil
	}
	v, err, shared := c.group.Do("markets", func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.WithComponent("catalog").Debug("market load shared with concurrent caller")
	}
	return v.(*Snapshot), nil
}

func (c *Catalog) fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	res, err := c.fetcher.Markets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	if !res.Present {
		return nil, c.engine.MissingResult("fetchMarkets", json.RawMessage(res.Body))
	}

	var decoded interface{}
	if err := json.Unmarshal(res.Raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	list, ok := decoded.([]interface{})
	if !ok {
		list = []interface{}{decoded}
	}

	s := c.Replace(c.engine.ParseMarkets(list))
	logger.LogPerformanceEntry(c.log.WithComponent("catalog"), "catalog", "load_markets", time.Since(start), logger.Fields{"markets": len(s.Markets)})
	return s, nil
}

// Replace publishes markets as the current snapshot.
func (c *Catalog) Replace(markets []models.Market) *Snapshot {
	s := newSnapshot(markets)
	c.snap.Store(s)
	c.log.WithComponent("catalog").WithFields(logger.Fields{"markets": len(markets)}).Info("market catalog updated")
	return s
}

// Snapshot returns the current snapshot or nil before the first load.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// ByID never returns nil; before the first load the index is empty.
func (c *Catalog) ByID() models.MarketsByID {
	if s := c.snap.Load(); s != nil {
		return s.byID
	}
	return models.MarketsByID{}
}

func (c *Catalog) BySymbol(symbol string) (*models.Market, bool) {
	s := c.snap.Load()
	if s == nil {
		return nil, false
	}
	m, ok := s.bySymbol[symbol]
	return m, ok
}

func (c *Catalog) Market(symbol string) (*models.Market, error) {
	if m, ok := c.BySymbol(symbol); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
}

// Symbols lists the unified symbols of the snapshot in sorted order.
func (c *Catalog) Symbols() []string {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.bySymbol))
	for sym := range s.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Run reloads the catalog every interval until ctx is done. Failed reloads
// keep the previous snapshot.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log := c.log.WithComponent("catalog")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Load(ctx, true); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("market reload failed, keeping previous catalog")
			}
		}
	}
}
