package models

import "time"

// Raw is one decoded JSON object exactly as a venue returned it. Every
// normalized record keeps the object it was built from in its Info field.
type Raw map[string]interface{}

// Kind names the unified record type carried by a message or batch.
type Kind string

const (
	KindMarket      Kind = "market"
	KindTicker      Kind = "ticker"
	KindOrderBook   Kind = "orderbook"
	KindTrade       Kind = "trade"
	KindOrder       Kind = "order"
	KindTransaction Kind = "transaction"
)

// RawMessage wraps the result container of a single venue response.
// Data holds the JSON of the container (a list or an object) in the order the
// venue produced it.
type RawMessage struct {
	Venue     string
	Kind      Kind
	Symbol    string
	Data      []byte
	Timestamp time.Time
}

// Batch groups normalized records produced from one or more raw messages of
// the same venue, kind and symbol. Only the slice matching Kind is populated.
type Batch struct {
	BatchID      string        `json:"batch_id"`
	Venue        string        `json:"venue"`
	Kind         Kind          `json:"kind"`
	Symbol       string        `json:"symbol"`
	Tickers      []Ticker      `json:"tickers,omitempty"`
	Trades       []Trade       `json:"trades,omitempty"`
	Orders       []Order       `json:"orders,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
	OrderBooks   []OrderBook   `json:"orderbooks,omitempty"`
	RecordCount  int           `json:"record_count"`
	Timestamp    time.Time     `json:"timestamp"`
	ProcessedAt  time.Time     `json:"processed_at"`
}

// Fee is the cost charged for a trade, order or transfer.
type Fee struct {
	Cost     *float64 `json:"cost"`
	Currency string   `json:"currency,omitempty"`
}
