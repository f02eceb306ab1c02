package processor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cryptonorm/logger"
	"cryptonorm/models"
)

// Batch variants normalize a raw list item by item. The output has exactly
// one record per input item at the same position. Items that are not objects
// are normalized as empty records. A malformed market id fails the whole call.

func (e *Engine) ParseMarkets(list []interface{}) []models.Market {
	out, _ := mapList(e, models.KindMarket, list, func(raw models.Raw) (models.Market, error) {
		return e.ParseMarket(raw), nil
	})
	return out
}

func (e *Engine) ParseTickers(list []interface{}, market *models.Market, markets models.MarketsByID) ([]models.Ticker, error) {
	return mapList(e, models.KindTicker, list, func(raw models.Raw) (models.Ticker, error) {
		return e.ParseTicker(raw, market, markets)
	})
}

func (e *Engine) ParseTrades(list []interface{}, market *models.Market, overrides *TradeOverrides) []models.Trade {
	out, _ := mapList(e, models.KindTrade, list, func(raw models.Raw) (models.Trade, error) {
		return e.ParseTrade(raw, market, overrides), nil
	})
	return out
}

func (e *Engine) ParseOrders(list []interface{}, market *models.Market, markets models.MarketsByID) ([]models.Order, error) {
	return mapList(e, models.KindOrder, list, func(raw models.Raw) (models.Order, error) {
		return e.ParseOrder(raw, market, markets)
	})
}

func (e *Engine) ParseTransactions(list []interface{}, currency string) []models.Transaction {
	out, _ := mapList(e, models.KindTransaction, list, func(raw models.Raw) (models.Transaction, error) {
		return e.ParseTransaction(raw, currency), nil
	})
	return out
}

// ParseOrdersConcurrent is ParseOrders spread over up to workers goroutines.
// Output order still equals input order.
func (e *Engine) ParseOrdersConcurrent(ctx context.Context, list []interface{}, market *models.Market, markets models.MarketsByID, workers int) ([]models.Order, error) {
	return mapConcurrent(ctx, e, models.KindOrder, list, workers, func(raw models.Raw) (models.Order, error) {
		return e.ParseOrder(raw, market, markets)
	})
}

// ParseTickersConcurrent is ParseTickers spread over up to workers goroutines.
func (e *Engine) ParseTickersConcurrent(ctx context.Context, list []interface{}, market *models.Market, markets models.MarketsByID, workers int) ([]models.Ticker, error) {
	return mapConcurrent(ctx, e, models.KindTicker, list, workers, func(raw models.Raw) (models.Ticker, error) {
		return e.ParseTicker(raw, market, markets)
	})
}

func (e *Engine) item(kind models.Kind, i int, v interface{}) models.Raw {
	raw := asRaw(v)
	if raw == nil {
		e.log.WithComponent("normalizer").WithFields(logger.Fields{
			"venue": e.profile.VenueID,
			"kind":  string(kind),
			"index": i,
			"type":  fmt.Sprintf("%T", v),
		}).Debug("list item is not an object")
		raw = models.Raw{}
	}
	return raw
}

func mapList[T any](e *Engine, kind models.Kind, list []interface{}, fn func(models.Raw) (T, error)) ([]T, error) {
	out := make([]T, len(list))
	for i, v := range list {
		rec, err := fn(e.item(kind, i, v))
		if err != nil {
			return nil, fmt.Errorf("%s %s #%d: %w", e.profile.VenueID, kind, i, err)
		}
		out[i] = rec
	}
	return out, nil
}

func mapConcurrent[T any](ctx context.Context, e *Engine, kind models.Kind, list []interface{}, workers int, fn func(models.Raw) (T, error)) ([]T, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]T, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range list {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := fn(e.item(kind, i, v))
			if err != nil {
				return fmt.Errorf("%s %s #%d: %w", e.profile.VenueID, kind, i, err)
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
