package models

// PriceLevel is a [price, amount] pair.
type PriceLevel [2]float64

// Price of the level.
func (l PriceLevel) Price() float64 { return l[0] }

// Amount resting at the level.
func (l PriceLevel) Amount() float64 { return l[1] }

// OrderBook is the unified depth snapshot. Bids are sorted best (highest)
// first, asks best (lowest) first.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Timestamp *int64       `json:"timestamp"`
	Datetime  string       `json:"datetime,omitempty"`
	Nonce     *int64       `json:"nonce"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Info      Raw          `json:"info"`
}
