package models

// OrderStatus is the lifecycle state of an order. Values the venue reports
// outside the known set are carried through verbatim.
type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order is a unified account order.
type Order struct {
	ID                 string      `json:"id"`
	Timestamp          *int64      `json:"timestamp"`
	Datetime           string      `json:"datetime,omitempty"`
	LastTradeTimestamp *int64      `json:"lastTradeTimestamp"`
	Symbol             string      `json:"symbol"`
	Type               string      `json:"type"`
	Side               Side        `json:"side,omitempty"`
	Price              *float64    `json:"price"`
	Cost               *float64    `json:"cost"`
	Average            *float64    `json:"average"`
	Amount             *float64    `json:"amount"`
	Filled             *float64    `json:"filled"`
	Remaining          *float64    `json:"remaining"`
	Status             OrderStatus `json:"status,omitempty"`
	Fee                *Fee        `json:"fee"`
	Info               Raw         `json:"info"`
}
