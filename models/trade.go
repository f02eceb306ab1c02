package models

// Side is the direction of a trade or order. The empty value means the venue
// sent something that could not be mapped.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderTypeLimit is the only order type the venue supports.
const OrderTypeLimit = "limit"

// Trade is a unified market or account trade.
type Trade struct {
	ID           string   `json:"id"`
	Timestamp    *int64   `json:"timestamp"`
	Datetime     string   `json:"datetime,omitempty"`
	Symbol       string   `json:"symbol"`
	Type         string   `json:"type"`
	Side         Side     `json:"side,omitempty"`
	Price        *float64 `json:"price"`
	Amount       *float64 `json:"amount"`
	Cost         *float64 `json:"cost"`
	Order        string   `json:"order,omitempty"`
	TakerOrMaker string   `json:"takerOrMaker,omitempty"`
	Fee          *Fee     `json:"fee"`
	Info         Raw      `json:"info"`
}
