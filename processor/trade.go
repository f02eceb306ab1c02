package processor

import (
	"cryptonorm/internal/extract"
	"cryptonorm/models"
)

// TradeOverrides carries context the venue does not put on the trade itself,
// such as the order a trade belongs to when it was fetched from that order's
// history. Empty fields are left alone.
type TradeOverrides struct {
	Order        string
	TakerOrMaker string
	Fee          *models.Fee
}

// ParseTrade converts one market or account trade. The side is mapped
// case-sensitively; unknown spellings leave it empty.
func (e *Engine) ParseTrade(raw models.Raw, market *models.Market, overrides *TradeOverrides) models.Trade {
	f := e.profile.Trades

	id, _ := extract.StringN(raw, f.ID...)
	ts := e.timestamp(raw, models.KindTrade, f.Timestamp, true)

	var side models.Side
	if s, ok := extract.Value(raw, f.Side); ok {
		if str, isString := s.(string); isString {
			side = models.Side(e.profile.TradeSides[str])
		}
	}

	symbol := ""
	if market != nil {
		symbol = market.Symbol
	}

	price := e.float(raw, models.KindTrade, f.Price)
	amount := e.float(raw, models.KindTrade, f.Amount)

	trade := models.Trade{
		ID:        id,
		Timestamp: ts,
		Datetime:  extract.ISO8601(ts),
		Symbol:    symbol,
		Type:      models.OrderTypeLimit,
		Side:      side,
		Price:     price,
		Amount:    amount,
		Cost:      mul(price, amount),
		Info:      raw,
	}

	if overrides != nil {
		if overrides.Order != "" {
			trade.Order = overrides.Order
		}
		if overrides.TakerOrMaker != "" {
			trade.TakerOrMaker = overrides.TakerOrMaker
		}
		if overrides.Fee != nil {
			fee := *overrides.Fee
			trade.Fee = &fee
		}
	}
	return trade
}
