package models

// Ticker is the unified 24h summary of one market.
type Ticker struct {
	Symbol        string   `json:"symbol"`
	Timestamp     *int64   `json:"timestamp"`
	Datetime      string   `json:"datetime,omitempty"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Bid           *float64 `json:"bid"`
	BidVolume     *float64 `json:"bidVolume"`
	Ask           *float64 `json:"ask"`
	AskVolume     *float64 `json:"askVolume"`
	VWAP          *float64 `json:"vwap"`
	Open          *float64 `json:"open"`
	Close         *float64 `json:"close"`
	Last          *float64 `json:"last"`
	PreviousClose *float64 `json:"previousClose"`
	Change        *float64 `json:"change"`
	Percentage    *float64 `json:"percentage"`
	Average       *float64 `json:"average"`
	BaseVolume    *float64 `json:"baseVolume"`
	QuoteVolume   *float64 `json:"quoteVolume"`
	Info          Raw      `json:"info"`
}
