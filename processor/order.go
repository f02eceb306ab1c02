package processor

import (
	"cryptonorm/internal/extract"
	"cryptonorm/internal/symbols"
	"cryptonorm/models"
)

// ParseOrder converts one account order.
//
// Status is resolved in a fixed order where each later rule that applies
// overrides the earlier ones: opened indicator, closed indicator,
// cancel-initiated indicator, then the mapped status string when status
// parsing is enabled in the profile.
//
// The symbol comes from the raw market id (catalog first, split second) and
// falls back to market when the id is absent. A market id that cannot be
// split is returned as an error.
func (e *Engine) ParseOrder(raw models.Raw, market *models.Market, markets models.MarketsByID) (models.Order, error) {
	f := e.profile.Orders

	symbol, market, err := e.orderSymbol(raw, market, markets)
	if err != nil {
		return models.Order{}, err
	}

	ts, lastTrade := e.orderTimestamps(raw)

	price := e.float(raw, models.KindOrder, f.Price)
	cost := e.float(raw, models.KindOrder, f.Cost)
	amount := e.float(raw, models.KindOrder, f.Amount)
	remaining := e.float(raw, models.KindOrder, f.Remaining)
	filled := sub(amount, remaining)
	if cost == nil {
		cost = mul(price, filled)
	}
	if isZero(price) && cost != nil && !isZero(filled) {
		price = div(cost, filled)
	}

	id, _ := extract.StringN(raw, f.ID...)

	return models.Order{
		ID:                 id,
		Timestamp:          ts,
		Datetime:           extract.ISO8601(ts),
		LastTradeTimestamp: lastTrade,
		Symbol:             symbol,
		Type:               models.OrderTypeLimit,
		Side:               e.orderSide(raw),
		Price:              price,
		Cost:               cost,
		Average:            e.float(raw, models.KindOrder, f.Average),
		Amount:             amount,
		Filled:             filled,
		Remaining:          remaining,
		Status:             e.orderStatus(raw),
		Fee:                e.orderFee(raw, symbol, market),
		Info:               raw,
	}, nil
}

func (e *Engine) orderStatus(raw models.Raw) models.OrderStatus {
	f := e.profile.Orders
	precedence := []struct {
		key    string
		status models.OrderStatus
	}{
		{f.Opened, models.OrderStatusOpen},
		{f.Closed, models.OrderStatusClosed},
		{f.CancelInitiated, models.OrderStatusCanceled},
	}

	var status models.OrderStatus
	for _, rule := range precedence {
		if rule.key != "" && extract.Truthy(raw, rule.key) {
			status = rule.status
		}
	}
	if e.profile.ParseOrderStatus && f.Status != "" {
		if s, ok := extract.String(raw, f.Status); ok {
			status = e.MapOrderStatus(s)
		}
	}
	return status
}

// MapOrderStatus maps a venue status string through the profile table.
// Unknown values are passed through unchanged.
func (e *Engine) MapOrderStatus(s string) models.OrderStatus {
	if mapped, ok := e.profile.OrderStatuses[s]; ok {
		return models.OrderStatus(mapped)
	}
	return models.OrderStatus(s)
}

func (e *Engine) orderSide(raw models.Raw) models.Side {
	s, ok := extract.StringN(raw, e.profile.Orders.Side...)
	if !ok {
		return ""
	}
	return models.Side(e.profile.OrderSides[s])
}

func (e *Engine) orderSymbol(raw models.Raw, market *models.Market, markets models.MarketsByID) (string, *models.Market, error) {
	id, ok := extract.String(raw, e.profile.Orders.MarketID)
	if !ok || id == "" {
		if market != nil {
			return market.Symbol, market, nil
		}
		return "", nil, nil
	}
	if m, found := markets[id]; found && m != nil {
		return m.Symbol, m, nil
	}
	symbol, err := e.resolver.SymbolFromID(id, nil)
	if err != nil {
		return "", nil, err
	}
	return symbol, nil, nil
}

// orderTimestamps returns the creation and last-trade timestamps. Created
// overrides Opened and Closed overrides the generic timestamp. Without a
// creation time the last-trade time is used for both.
func (e *Engine) orderTimestamps(raw models.Raw) (*int64, *int64) {
	f := e.profile.Orders

	var ts *int64
	for _, key := range []string{f.Opened, f.Created} {
		if _, ok := extract.Value(raw, key); ok {
			ts = e.timestamp(raw, models.KindOrder, key, true)
		}
	}

	var lastTrade *int64
	for _, key := range []string{f.Timestamp, f.Closed} {
		if _, ok := extract.Value(raw, key); ok {
			lastTrade = e.timestamp(raw, models.KindOrder, key, true)
		}
	}

	if ts == nil {
		ts = lastTrade
	}
	return ts, lastTrade
}

func (e *Engine) orderFee(raw models.Raw, symbol string, market *models.Market) *models.Fee {
	for _, key := range e.profile.Orders.Commission {
		if !extract.Has(raw, key) {
			continue
		}
		fee := &models.Fee{Cost: e.float(raw, models.KindOrder, key)}
		if market != nil {
			fee.Currency = market.Quote
		} else if quote := symbols.QuoteOf(symbol); quote != "" {
			fee.Currency = e.resolver.Currency(quote)
		}
		return fee
	}
	return nil
}
