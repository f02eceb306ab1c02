package txbit

import (
	"context"
	"net/url"
	"strconv"
)

const (
	pathMarkets         = "public/getmarkets"
	pathMarketSummaries = "public/getmarketsummaries"
	pathMarketSummary   = "public/getmarketsummary"
	pathOrderBook       = "public/getorderbook"
	pathMarketHistory   = "public/getmarkethistory"
	pathOrders          = "account/getorders"
	pathOrderHistory    = "account/getorderhistory"
	pathDepositHistory  = "account/getdeposithistory"
	pathWithdrawHistory = "account/getwithdrawhistory"
)

// AllMarkets is the market filter the account endpoints accept for "every
// market".
const AllMarkets = "ALL"

func (c *Client) Markets(ctx context.Context) (Result, error) {
	return c.Get(ctx, pathMarkets, nil, false)
}

func (c *Client) MarketSummaries(ctx context.Context) (Result, error) {
	return c.Get(ctx, pathMarketSummaries, nil, false)
}

func (c *Client) MarketSummary(ctx context.Context, marketID string) (Result, error) {
	return c.Get(ctx, pathMarketSummary, url.Values{"market": {marketID}}, false)
}

// OrderBook requests both sides. depth <= 0 leaves the venue default.
func (c *Client) OrderBook(ctx context.Context, marketID string, depth int) (Result, error) {
	params := url.Values{"market": {marketID}, "type": {"both"}}
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}
	return c.Get(ctx, pathOrderBook, params, false)
}

func (c *Client) MarketHistory(ctx context.Context, marketID string) (Result, error) {
	return c.Get(ctx, pathMarketHistory, url.Values{"market": {marketID}}, false)
}

// Orders lists orders of every status. An empty marketID means AllMarkets.
func (c *Client) Orders(ctx context.Context, marketID string) (Result, error) {
	if marketID == "" {
		marketID = AllMarkets
	}
	return c.Get(ctx, pathOrders, url.Values{"market": {marketID}, "orderstatus": {"ALL"}}, true)
}

func (c *Client) OrderHistory(ctx context.Context, orderID string) (Result, error) {
	return c.Get(ctx, pathOrderHistory, url.Values{"orderid": {orderID}}, true)
}

func (c *Client) DepositHistory(ctx context.Context, currencyID string) (Result, error) {
	return c.Get(ctx, pathDepositHistory, currencyParams(currencyID), true)
}

func (c *Client) WithdrawHistory(ctx context.Context, currencyID string) (Result, error) {
	return c.Get(ctx, pathWithdrawHistory, currencyParams(currencyID), true)
}

func currencyParams(currencyID string) url.Values {
	params := url.Values{}
	if currencyID != "" {
		params.Set("currency", currencyID)
	}
	return params
}
