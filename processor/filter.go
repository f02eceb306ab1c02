package processor

import "cryptonorm/models"

// FilterByStatus keeps the orders whose status equals status, in order.
func FilterByStatus(orders []models.Order, status models.OrderStatus) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// FilterTradesBySymbolSinceLimit keeps trades of symbol (any symbol when
// empty) with a timestamp at or after since, then the first limit of them
// when limit is positive.
func FilterTradesBySymbolSinceLimit(trades []models.Trade, symbol string, since *int64, limit int) []models.Trade {
	return filterSinceLimit(trades, func(t models.Trade) (string, *int64) { return t.Symbol, t.Timestamp }, symbol, since, limit)
}

// FilterOrdersBySymbolSinceLimit is FilterTradesBySymbolSinceLimit for orders.
func FilterOrdersBySymbolSinceLimit(orders []models.Order, symbol string, since *int64, limit int) []models.Order {
	return filterSinceLimit(orders, func(o models.Order) (string, *int64) { return o.Symbol, o.Timestamp }, symbol, since, limit)
}

// FilterByCurrencySinceLimit keeps transactions of code (any code when
// empty) at or after since, then the first limit of them.
func FilterByCurrencySinceLimit(txs []models.Transaction, code string, since *int64, limit int) []models.Transaction {
	return filterSinceLimit(txs, func(t models.Transaction) (string, *int64) { return t.Currency, t.Timestamp }, code, since, limit)
}

// filterSinceLimit drops records without a timestamp only when since is set.
func filterSinceLimit[T any](items []T, key func(T) (string, *int64), value string, since *int64, limit int) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		k, ts := key(it)
		if value != "" && k != value {
			continue
		}
		if since != nil && (ts == nil || *ts < *since) {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
