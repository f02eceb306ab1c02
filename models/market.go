package models

// Precision holds the number of decimal places for amounts and prices.
type Precision struct {
	Amount int `json:"amount"`
	Price  int `json:"price"`
}

// MinMax is an optional trading bound. Nil means the venue does not publish it.
type MinMax struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Limits groups the amount and price bounds of a market.
type Limits struct {
	Amount MinMax `json:"amount"`
	Price  MinMax `json:"price"`
}

// Market is the unified descriptor of one tradable pair.
// Symbol is always Base + "/" + Quote.
type Market struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	BaseID    string    `json:"baseId"`
	QuoteID   string    `json:"quoteId"`
	Active    bool      `json:"active"`
	Precision Precision `json:"precision"`
	Limits    Limits    `json:"limits"`
	Info      Raw       `json:"info"`
}

// MarketsByID indexes markets by the venue's own market identifier.
type MarketsByID map[string]*Market
