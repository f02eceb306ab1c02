package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonorm/config"
	"cryptonorm/models"
)

const venueTime = "2006-01-02 15:04:05"

func closedOrder() models.Raw {
	return models.Raw{
		"OrderId":            "107220258",
		"Exchange":           "LTC/BTC",
		"Type":               "SELL",
		"Quantity":           "2.13040000",
		"QuantityRemaining":  "0.00000000",
		"Price":              "0.01332672",
		"Status":             "OK",
		"Created":            "2018-06-30 04:55:50",
		"QuantityBaseTraded": "0.02839125",
		"Comments":           "",
	}
}

func TestParseOrderDerivesFilledAndCost(t *testing.T) {
	e := newTestEngine()
	raw := closedOrder()

	o, err := e.ParseOrder(raw, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "107220258", o.ID)
	assert.Equal(t, "LTC/BTC", o.Symbol)
	assert.Equal(t, models.SideSell, o.Side)
	assert.Equal(t, models.OrderTypeLimit, o.Type)
	assert.Equal(t, models.OrderStatusClosed, o.Status)
	require.NotNil(t, o.Filled)
	assert.Equal(t, 2.1304, *o.Filled)
	assert.Equal(t, 0.0, *o.Remaining)
	require.NotNil(t, o.Cost)
	assert.InDelta(t, 0.028391244288, *o.Cost, 1e-12)
	assert.Equal(t, 0.01332672, *o.Price)
	assert.Nil(t, o.Average)
	assert.Nil(t, o.Fee)
	require.NotNil(t, o.Timestamp)
	assert.Equal(t, ms(venueTime, "2018-06-30 04:55:50"), *o.Timestamp)
	assert.Equal(t, int64(1530334550000), *o.Timestamp)
	assert.Equal(t, "2018-06-30T04:55:50.000Z", o.Datetime)
	assert.Nil(t, o.LastTradeTimestamp)
	assert.Equal(t, raw, o.Info)
}

func TestParseOrderStatusPrecedence(t *testing.T) {
	e := newTestEngine()
	cases := []struct {
		name string
		raw  models.Raw
		want models.OrderStatus
	}{
		{"opened only", models.Raw{"Opened": "2018-06-30 04:55:50"}, models.OrderStatusOpen},
		{"closed overrides opened", models.Raw{"Opened": "2018-06-30 04:55:50", "Closed": "2018-06-30 05:00:00"}, models.OrderStatusClosed},
		{"cancel overrides closed", models.Raw{"Closed": "2018-06-30 05:00:00", "CancelInitiated": true}, models.OrderStatusCanceled},
		{"falsy cancel ignored", models.Raw{"Closed": "2018-06-30 05:00:00", "CancelInitiated": false}, models.OrderStatusClosed},
		{"status OK with closed", models.Raw{"Closed": "2018-06-30 05:00:00", "Status": "OK"}, models.OrderStatusClosed},
		{"status OPEN wins over closed", models.Raw{"Closed": "2018-06-30 05:00:00", "Status": "OPEN"}, models.OrderStatusOpen},
		{"status CANCELED", models.Raw{"Opened": "2018-06-30 04:55:50", "Status": "CANCELED"}, models.OrderStatusCanceled},
		{"unknown status passes through", models.Raw{"Status": "PARTIALLY_FILLED"}, models.OrderStatus("PARTIALLY_FILLED")},
		{"null status ignored", models.Raw{"Closed": "2018-06-30 05:00:00", "Status": nil}, models.OrderStatusClosed},
		{"no indicators", models.Raw{}, models.OrderStatus("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := e.ParseOrder(tc.raw, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, o.Status)
		})
	}
}

func TestParseOrderStatusParsingDisabled(t *testing.T) {
	p := config.DefaultTxbitProfile()
	p.ParseOrderStatus = false
	e := NewEngine(p)

	o, err := e.ParseOrder(models.Raw{"Closed": "2018-06-30 05:00:00", "Status": "OPEN"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusClosed, o.Status)
}

func TestParseOrderSide(t *testing.T) {
	e := newTestEngine()
	cases := []struct {
		raw  models.Raw
		want models.Side
	}{
		{models.Raw{"OrderType": "LIMIT_BUY"}, models.SideBuy},
		{models.Raw{"OrderType": "BUY"}, models.SideBuy},
		{models.Raw{"Type": "LIMIT_SELL"}, models.SideSell},
		{models.Raw{"Type": "SELL"}, models.SideSell},
		{models.Raw{"OrderType": "LIMIT_SELL", "Type": "BUY"}, models.SideSell},
		{models.Raw{"OrderType": "buy"}, ""},
		{models.Raw{"OrderType": "MARKET_BUY"}, ""},
		{models.Raw{}, ""},
	}
	for _, tc := range cases {
		o, err := e.ParseOrder(tc.raw, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, o.Side, "%v", tc.raw)
	}
}

func TestParseOrderTimestamps(t *testing.T) {
	e := newTestEngine()

	o, err := e.ParseOrder(models.Raw{
		"Opened":    "2018-06-30 04:55:50",
		"Created":   "2018-06-30 04:55:51",
		"TimeStamp": "2018-06-30 05:00:00",
		"Closed":    "2018-06-30 06:00:00",
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ms(venueTime, "2018-06-30 04:55:51"), *o.Timestamp, "created wins over opened")
	assert.Equal(t, ms(venueTime, "2018-06-30 06:00:00"), *o.LastTradeTimestamp, "closed wins over timestamp")

	o, err = e.ParseOrder(models.Raw{"TimeStamp": "2018-06-30 05:00:00"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, o.Timestamp)
	assert.Equal(t, *o.LastTradeTimestamp, *o.Timestamp, "falls back to last trade time")

	o, err = e.ParseOrder(models.Raw{"Opened": "2018-06-30 04:55:50", "Closed": nil}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ms(venueTime, "2018-06-30 04:55:50"), *o.Timestamp)
	assert.Nil(t, o.LastTradeTimestamp)
}

func TestParseOrderSymbolResolution(t *testing.T) {
	e := newTestEngine()
	catalog := models.MarketsByID{"XBT/USD": {ID: "XBT/USD", Symbol: "BTC/USD", Base: "BTC", Quote: "USD"}}

	o, err := e.ParseOrder(models.Raw{"Exchange": "XBT/USD", "Commission": "0.1"}, nil, catalog)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", o.Symbol)
	assert.Equal(t, "USD", o.Fee.Currency)

	o, err = e.ParseOrder(models.Raw{"Exchange": "DOGE/XBT"}, nil, catalog)
	require.NoError(t, err)
	assert.Equal(t, "DOGE/BTC", o.Symbol)

	o, err = e.ParseOrder(models.Raw{}, ethBTC(), catalog)
	require.NoError(t, err)
	assert.Equal(t, "ETH/BTC", o.Symbol)

	o, err = e.ParseOrder(models.Raw{"Exchange": ""}, ethBTC(), catalog)
	require.NoError(t, err)
	assert.Equal(t, "ETH/BTC", o.Symbol)

	_, err = e.ParseOrder(models.Raw{"Exchange": "LTC_BTC"}, nil, catalog)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSymbol))
}

func TestParseOrderVenueSeparator(t *testing.T) {
	p := config.DefaultTxbitProfile()
	p.MarketIDSeparator = "_"
	e := NewEngine(p)

	raw := closedOrder()
	raw["Exchange"] = "LTC_BTC"
	o, err := e.ParseOrder(raw, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "LTC/BTC", o.Symbol)
}

func TestParseOrderFee(t *testing.T) {
	e := newTestEngine()

	o, err := e.ParseOrder(models.Raw{"Exchange": "LTC/BTC", "Commission": "0.0001", "CommissionPaid": "0.5"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, o.Fee)
	assert.Equal(t, 0.0001, *o.Fee.Cost)
	assert.Equal(t, "BTC", o.Fee.Currency)

	o, err = e.ParseOrder(models.Raw{"Exchange": "LTC/XBT", "CommissionPaid": "0.5"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, o.Fee)
	assert.Equal(t, 0.5, *o.Fee.Cost)
	assert.Equal(t, "BTC", o.Fee.Currency)

	o, err = e.ParseOrder(models.Raw{"CommissionPaid": "0.5"}, ethBTC(), nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC", o.Fee.Currency)

	o, err = e.ParseOrder(models.Raw{"Commission": nil}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, o.Fee)
	assert.Nil(t, o.Fee.Cost)
	assert.Equal(t, "", o.Fee.Currency)
}

func TestParseOrderPriceFallback(t *testing.T) {
	p := config.DefaultTxbitProfile()
	p.Orders.Cost = "QuantityBaseTraded"
	e := NewEngine(p)

	o, err := e.ParseOrder(models.Raw{
		"Quantity":           "2",
		"QuantityRemaining":  "0.5",
		"QuantityBaseTraded": "3",
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, *o.Filled)
	assert.Equal(t, 3.0, *o.Cost)
	require.NotNil(t, o.Price)
	assert.Equal(t, 2.0, *o.Price)

	o, err = e.ParseOrder(models.Raw{"Quantity": "2", "QuantityRemaining": "2", "QuantityBaseTraded": "0"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *o.Filled)
	assert.Nil(t, o.Price, "no division by a zero fill")
}

func TestParseOrderPartialData(t *testing.T) {
	e := newTestEngine()

	o, err := e.ParseOrder(models.Raw{"Quantity": "2", "Price": "0.5"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, o.Filled)
	assert.Nil(t, o.Cost)
	assert.Nil(t, o.Remaining)
	assert.Equal(t, 0.5, *o.Price)

	o, err = e.ParseOrder(models.Raw{"OrderUuid": "abc", "OrderId": "1", "PricePerUnit": "0.3"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", o.ID)
	assert.Equal(t, 0.3, *o.Average)
}

func TestParseOrderIdempotent(t *testing.T) {
	e := newTestEngine()
	catalog := models.MarketsByID{"LTC/BTC": {ID: "LTC/BTC", Symbol: "LTC/BTC", Base: "LTC", Quote: "BTC"}}

	first, err := e.ParseOrder(closedOrder(), nil, catalog)
	require.NoError(t, err)
	second, err := e.ParseOrder(first.Info, nil, catalog)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
