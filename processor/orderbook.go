package processor

import (
	"encoding/json"
	"sort"

	"cryptonorm/internal/extract"
	"cryptonorm/logger"
	"cryptonorm/models"
)

const maxResponseContext = 512

// ParseOrderBook converts the order book container of a venue response.
// result is the decoded container; a nil or non-object container fails with
// *MissingResultError. Bids are returned best (highest) first and asks best
// (lowest) first; a positive depth keeps only that many levels per side.
func (e *Engine) ParseOrderBook(result interface{}, symbol string, depth int) (models.OrderBook, error) {
	raw := asRaw(result)
	if raw == nil {
		return models.OrderBook{}, e.missingResult("fetchOrderBook", result)
	}
	f := e.profile.OrderBook

	bids := e.parseLevels(raw, f.Bids, symbol)
	asks := e.parseLevels(raw, f.Asks, symbol)
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price() > bids[j].Price() })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price() < asks[j].Price() })
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}

	return models.OrderBook{
		Symbol: symbol,
		Bids:   bids,
		Asks:   asks,
		Info:   raw,
	}, nil
}

func (e *Engine) parseLevels(raw models.Raw, side, symbol string) []models.PriceLevel {
	list, ok := extract.List(raw, side)
	if !ok {
		return []models.PriceLevel{}
	}
	f := e.profile.OrderBook
	levels := make([]models.PriceLevel, 0, len(list))
	for i, item := range list {
		entry, _ := item.(map[string]interface{})
		price := extract.Float(entry, f.Price)
		amount := extract.Float(entry, f.Amount)
		if price == nil || amount == nil {
			e.log.WithComponent("normalizer").WithFields(logger.Fields{
				"venue":  e.profile.VenueID,
				"kind":   string(models.KindOrderBook),
				"symbol": symbol,
				"side":   side,
				"level":  i + 1,
			}).Debug("skipping unparseable order book level")
			continue
		}
		levels = append(levels, models.PriceLevel{*price, *amount})
	}
	return levels
}

func (e *Engine) missingResult(operation string, response interface{}) *MissingResultError {
	ctx := ""
	if response != nil {
		if b, err := json.Marshal(response); err == nil {
			ctx = string(b)
		}
	}
	if len(ctx) > maxResponseContext {
		ctx = ctx[:maxResponseContext]
	}
	return &MissingResultError{Venue: e.profile.VenueID, Operation: operation, Response: ctx}
}

// MissingResult builds the error returned when a response carries no result
// container.
func (e *Engine) MissingResult(operation string, response interface{}) error {
	return e.missingResult(operation, response)
}

func asRaw(v interface{}) models.Raw {
	switch t := v.(type) {
	case models.Raw:
		return t
	case map[string]interface{}:
		return t
	}
	return nil
}
