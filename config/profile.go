package config

import (
	"fmt"
	"strings"
)

// MarketFields names the keys of a raw market-listing entry.
type MarketFields struct {
	ID        string `yaml:"id"`
	BaseID    string `yaml:"base_id"`
	QuoteID   string `yaml:"quote_id"`
	Active    string `yaml:"active"`
	MinAmount string `yaml:"min_amount"`
}

// TickerFields names the keys of a raw market summary.
type TickerFields struct {
	MarketID    string `yaml:"market_id"`
	Timestamp   string `yaml:"timestamp"`
	High        string `yaml:"high"`
	Low         string `yaml:"low"`
	Bid         string `yaml:"bid"`
	Ask         string `yaml:"ask"`
	Last        string `yaml:"last"`
	PrevDay     string `yaml:"prev_day"`
	BaseVolume  string `yaml:"base_volume"`
	QuoteVolume string `yaml:"quote_volume"`
}

// OrderBookFields names the two side arrays and the level keys.
type OrderBookFields struct {
	Bids   string `yaml:"bids"`
	Asks   string `yaml:"asks"`
	Price  string `yaml:"price"`
	Amount string `yaml:"amount"`
}

// TradeFields names the keys of a raw trade. ID lists alternate spellings in
// precedence order.
type TradeFields struct {
	ID        []string `yaml:"id"`
	Timestamp string   `yaml:"timestamp"`
	Side      string   `yaml:"side"`
	Price     string   `yaml:"price"`
	Amount    string   `yaml:"amount"`
}

// OrderFields names the keys of a raw order. List-valued entries are checked
// in order and the first present key wins.
type OrderFields struct {
	ID              []string `yaml:"id"`
	MarketID        string   `yaml:"market_id"`
	Side            []string `yaml:"side"`
	Opened          string   `yaml:"opened"`
	Closed          string   `yaml:"closed"`
	CancelInitiated string   `yaml:"cancel_initiated"`
	Status          string   `yaml:"status"`
	Created         string   `yaml:"created"`
	Timestamp       string   `yaml:"timestamp"`
	Commission      []string `yaml:"commission"`
	Price           string   `yaml:"price"`
	Cost            string   `yaml:"cost"`
	Amount          string   `yaml:"amount"`
	Remaining       string   `yaml:"remaining"`
	Average         string   `yaml:"average"`
}

// TransactionFields names the keys of a raw deposit or withdrawal.
type TransactionFields struct {
	ID        string `yaml:"id"`
	Currency  string `yaml:"currency"`
	Amount    string `yaml:"amount"`
	Timestamp string `yaml:"timestamp"`
	Label     string `yaml:"label"`
	TxID      string `yaml:"txid"`
}

// Profile describes everything that is specific to one venue's encoding.
// The normalization engine is generic and reads all field names, lookup
// tables and separators from here.
type Profile struct {
	VenueID               string             `yaml:"venue_id"`
	MarketIDSeparator     string             `yaml:"market_id_separator"`
	TimestampOffset       string             `yaml:"timestamp_offset"`
	AmountPrecision       int                `yaml:"amount_precision"`
	DefaultPricePrecision int                `yaml:"default_price_precision"`
	PricePrecisionByCode  map[string]int     `yaml:"price_precision_by_code"`
	CommonCurrencies      map[string]string  `yaml:"common_currencies"`
	WithdrawFees          map[string]float64 `yaml:"withdraw_fees"`
	ParseOrderStatus      bool               `yaml:"parse_order_status"`
	OrderStatuses         map[string]string  `yaml:"order_statuses"`
	OrderSides            map[string]string  `yaml:"order_sides"`
	TradeSides            map[string]string  `yaml:"trade_sides"`
	CanceledTxID          string             `yaml:"canceled_txid"`
	LabelSeparator        string             `yaml:"label_separator"`

	Markets      MarketFields      `yaml:"markets"`
	Tickers      TickerFields      `yaml:"tickers"`
	OrderBook    OrderBookFields   `yaml:"orderbook"`
	Trades       TradeFields       `yaml:"trades"`
	Orders       OrderFields       `yaml:"orders"`
	Transactions TransactionFields `yaml:"transactions"`
}

// DefaultTxbitProfile returns the encoding used by the Txbit REST API.
func DefaultTxbitProfile() Profile {
	return Profile{
		VenueID:               "txbit",
		MarketIDSeparator:     "/",
		TimestampOffset:       "+00:00",
		AmountPrecision:       8,
		DefaultPricePrecision: 8,
		PricePrecisionByCode:  map[string]int{"USD": 3, "BTC": 8},
		CommonCurrencies:      map[string]string{"XBT": "BTC", "BCC": "BCH"},
		WithdrawFees:          map[string]float64{"BTC": 0.001},
		ParseOrderStatus:      true,
		OrderStatuses: map[string]string{
			"OK":       "closed",
			"OPEN":     "open",
			"CANCELED": "canceled",
		},
		OrderSides: map[string]string{
			"BUY":        "buy",
			"LIMIT_BUY":  "buy",
			"SELL":       "sell",
			"LIMIT_SELL": "sell",
		},
		TradeSides:     map[string]string{"BUY": "buy", "SELL": "sell"},
		CanceledTxID:   "CANCELED",
		LabelSeparator: ";",
		Markets: MarketFields{
			ID:        "MarketName",
			BaseID:    "MarketCurrency",
			QuoteID:   "BaseCurrency",
			Active:    "IsActive",
			MinAmount: "MinTradeSize",
		},
		Tickers: TickerFields{
			MarketID:    "MarketName",
			Timestamp:   "TimeStamp",
			High:        "High",
			Low:         "Low",
			Bid:         "Bid",
			Ask:         "Ask",
			Last:        "Last",
			PrevDay:     "PrevDay",
			BaseVolume:  "Volume",
			QuoteVolume: "BaseVolume",
		},
		OrderBook: OrderBookFields{
			Bids:   "buy",
			Asks:   "sell",
			Price:  "Rate",
			Amount: "Quantity",
		},
		Trades: TradeFields{
			ID:        []string{"Id", "ID"},
			Timestamp: "TimeStamp",
			Side:      "OrderType",
			Price:     "Price",
			Amount:    "Quantity",
		},
		Orders: OrderFields{
			ID:              []string{"OrderUuid", "OrderId"},
			MarketID:        "Exchange",
			Side:            []string{"OrderType", "Type"},
			Opened:          "Opened",
			Closed:          "Closed",
			CancelInitiated: "CancelInitiated",
			Status:          "Status",
			Created:         "Created",
			Timestamp:       "TimeStamp",
			Commission:      []string{"Commission", "CommissionPaid"},
			Price:           "Price",
			Amount:          "Quantity",
			Remaining:       "QuantityRemaining",
			Average:         "PricePerUnit",
		},
		Transactions: TransactionFields{
			ID:        "Id",
			Currency:  "Coin",
			Amount:    "Amount",
			Timestamp: "TimeStamp",
			Label:     "Label",
			TxID:      "TransactionId",
		},
	}
}

// PricePrecision returns the price precision for a unified quote code.
func (p *Profile) PricePrecision(quote string) int {
	if v, ok := p.PricePrecisionByCode[quote]; ok {
		return v
	}
	return p.DefaultPricePrecision
}

// Validate checks that the keys every normalizer depends on are set.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.VenueID) == "" {
		return fmt.Errorf("profile.venue_id is required")
	}
	if p.MarketIDSeparator == "" {
		return fmt.Errorf("profile.market_id_separator is required")
	}
	if p.LabelSeparator == "" {
		return fmt.Errorf("profile.label_separator is required")
	}
	if p.AmountPrecision < 0 || p.DefaultPricePrecision < 0 {
		return fmt.Errorf("profile precisions must not be negative")
	}
	for code, v := range p.PricePrecisionByCode {
		if v < 0 {
			return fmt.Errorf("profile.price_precision_by_code[%s] must not be negative", code)
		}
	}
	if p.OrderBook.Bids == "" || p.OrderBook.Asks == "" || p.OrderBook.Price == "" || p.OrderBook.Amount == "" {
		return fmt.Errorf("profile.orderbook keys are required")
	}
	if p.Markets.ID == "" || p.Markets.BaseID == "" || p.Markets.QuoteID == "" {
		return fmt.Errorf("profile.markets id, base_id and quote_id are required")
	}
	if len(p.Orders.ID) == 0 || len(p.Trades.ID) == 0 || p.Transactions.ID == "" {
		return fmt.Errorf("profile id keys are required for trades, orders and transactions")
	}
	return nil
}
