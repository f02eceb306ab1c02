// Package venue exposes the Txbit venue as one object: it loads the market
// catalog, calls the REST endpoints and normalizes every response into the
// unified records.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cryptonorm/config"
	"cryptonorm/internal/catalog"
	"cryptonorm/models"
	"cryptonorm/processor"
	"cryptonorm/reader/txbit"
)

type Exchange struct {
	client  *txbit.Client
	catalog *catalog.Catalog
	engine  *processor.Engine
	profile config.Profile
	workers int
}

// New wires a client, engine and catalog from cfg.
func New(cfg *config.Config) *Exchange {
	engine := processor.NewEngine(cfg.Venue.Profile)
	client := txbit.NewClient(cfg.Venue, cfg.Reader)
	return &Exchange{
		client:  client,
		catalog: catalog.New(engine, client),
		engine:  engine,
		profile: cfg.Venue.Profile,
		workers: cfg.Processor.MaxWorkers,
	}
}

func (x *Exchange) Client() *txbit.Client { return x.client }
func (x *Exchange) Catalog() *catalog.Catalog { return x.catalog }
func (x *Exchange) Engine() *processor.Engine { return x.engine }

// LoadMarkets returns the catalog keyed by unified symbol, fetching it on
// first use or when reload is set.
func (x *Exchange) LoadMarkets(ctx context.Context, reload bool) (map[string]*models.Market, error) {
	s, err := x.catalog.Load(ctx, reload)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Market, len(s.Markets))
	for i := range s.Markets {
		out[s.Markets[i].Symbol] = &s.Markets[i]
	}
	return out, nil
}

// FetchMarkets always hits the venue and returns the listing in venue order.
func (x *Exchange) FetchMarkets(ctx context.Context) ([]models.Market, error) {
	s, err := x.catalog.Load(ctx, true)
	if err != nil {
		return nil, err
	}
	return s.Markets, nil
}

func (x *Exchange) market(ctx context.Context, symbol string) (*models.Market, error) {
	if _, err := x.catalog.Load(ctx, false); err != nil {
		return nil, err
	}
	return x.catalog.Market(symbol)
}

// optionalMarket resolves symbol when it is set. An empty symbol means all
// markets.
func (x *Exchange) optionalMarket(ctx context.Context, symbol string) (*models.Market, string, error) {
	if symbol == "" {
		if _, err := x.catalog.Load(ctx, false); err != nil {
			return nil, "", err
		}
		return nil, "", nil
	}
	m, err := x.market(ctx, symbol)
	if err != nil {
		return nil, "", err
	}
	return m, m.ID, nil
}

// decode returns the result container, or a missing-result error naming
// operation when the response had none.
func (x *Exchange) decode(res txbit.Result, operation string) (interface{}, error) {
	if !res.Present {
		return nil, x.engine.MissingResult(operation, json.RawMessage(res.Body))
	}
	var v interface{}
	if err := json.Unmarshal(res.Raw, &v); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", operation, err)
	}
	return v, nil
}

func (x *Exchange) decodeList(res txbit.Result, operation string) ([]interface{}, error) {
	v, err := x.decode(res, operation)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]interface{}); ok {
		return list, nil
	}
	return []interface{}{v}, nil
}

func (x *Exchange) FetchTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	m, err := x.market(ctx, symbol)
	if err != nil {
		return models.Ticker{}, err
	}
	res, err := x.client.MarketSummary(ctx, m.ID)
	if err != nil {
		return models.Ticker{}, err
	}
	v, err := x.decode(res, "fetchTicker")
	if err != nil {
		return models.Ticker{}, err
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return models.Ticker{}, x.engine.MissingResult("fetchTicker", v)
	}
	return x.engine.ParseTicker(models.Raw(raw), m, x.catalog.ByID())
}

// FetchTickers returns the tickers of symbols keyed by symbol, or of every
// market when symbols is empty.
func (x *Exchange) FetchTickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	if _, err := x.catalog.Load(ctx, false); err != nil {
		return nil, err
	}
	res, err := x.client.MarketSummaries(ctx)
	if err != nil {
		return nil, err
	}
	list, err := x.decodeList(res, "fetchTickers")
	if err != nil {
		return nil, err
	}
	tickers, err := x.engine.ParseTickersConcurrent(ctx, list, nil, x.catalog.ByID(), x.workers)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	out := make(map[string]models.Ticker, len(tickers))
	for _, t := range tickers {
		if len(want) > 0 && !want[t.Symbol] {
			continue
		}
		out[t.Symbol] = t
	}
	return out, nil
}

// FetchOrderBook returns both sides of symbol's book. depth <= 0 uses the
// venue default.
func (x *Exchange) FetchOrderBook(ctx context.Context, symbol string, depth int) (models.OrderBook, error) {
	m, err := x.market(ctx, symbol)
	if err != nil {
		return models.OrderBook{}, err
	}
	res, err := x.client.OrderBook(ctx, m.ID, depth)
	if err != nil {
		return models.OrderBook{}, err
	}
	if !res.Present {
		return models.OrderBook{}, x.engine.MissingResult("fetchOrderBook", json.RawMessage(res.Body))
	}
	var v interface{}
	if err := json.Unmarshal(res.Raw, &v); err != nil {
		return models.OrderBook{}, fmt.Errorf("fetchOrderBook: decode result: %w", err)
	}
	return x.engine.ParseOrderBook(v, m.Symbol, depth)
}

func (x *Exchange) FetchTrades(ctx context.Context, symbol string, since *int64, limit int) ([]models.Trade, error) {
	m, err := x.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	res, err := x.client.MarketHistory(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	list, err := x.decodeList(res, "fetchTrades")
	if err != nil {
		return nil, err
	}
	trades := x.engine.ParseTrades(list, m, nil)
	return processor.FilterTradesBySymbolSinceLimit(trades, m.Symbol, since, limit), nil
}

// FetchOrders returns orders of every status for symbol, or for all markets
// when symbol is empty.
func (x *Exchange) FetchOrders(ctx context.Context, symbol string, since *int64, limit int) ([]models.Order, error) {
	m, id, err := x.optionalMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}
	res, err := x.client.Orders(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := x.decodeList(res, "fetchOrders")
	if err != nil {
		return nil, err
	}
	orders, err := x.engine.ParseOrdersConcurrent(ctx, list, m, x.catalog.ByID(), x.workers)
	if err != nil {
		return nil, err
	}
	return processor.FilterOrdersBySymbolSinceLimit(orders, symbol, since, limit), nil
}

func (x *Exchange) FetchOpenOrders(ctx context.Context, symbol string, since *int64, limit int) ([]models.Order, error) {
	orders, err := x.FetchOrders(ctx, symbol, since, limit)
	if err != nil {
		return nil, err
	}
	return processor.FilterByStatus(orders, models.OrderStatusOpen), nil
}

func (x *Exchange) FetchClosedOrders(ctx context.Context, symbol string, since *int64, limit int) ([]models.Order, error) {
	orders, err := x.FetchOrders(ctx, symbol, since, limit)
	if err != nil {
		return nil, err
	}
	return processor.FilterByStatus(orders, models.OrderStatusClosed), nil
}

// FetchOrderTrades returns the fills of one order. Every trade carries the
// order id since the venue omits it from the history entries.
func (x *Exchange) FetchOrderTrades(ctx context.Context, orderID, symbol string, since *int64, limit int) ([]models.Trade, error) {
	m, _, err := x.optionalMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}
	res, err := x.client.OrderHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	list, err := x.decodeList(res, "fetchOrderTrades")
	if err != nil {
		return nil, err
	}
	trades := x.engine.ParseTrades(list, m, &processor.TradeOverrides{Order: orderID})
	return processor.FilterTradesBySymbolSinceLimit(trades, symbol, since, limit), nil
}

func (x *Exchange) FetchDeposits(ctx context.Context, code string, since *int64, limit int) ([]models.Transaction, error) {
	return x.transactions(ctx, "fetchDeposits", x.client.DepositHistory, code, since, limit)
}

func (x *Exchange) FetchWithdrawals(ctx context.Context, code string, since *int64, limit int) ([]models.Transaction, error) {
	return x.transactions(ctx, "fetchWithdrawals", x.client.WithdrawHistory, code, since, limit)
}

func (x *Exchange) transactions(ctx context.Context, operation string, fetch func(context.Context, string) (txbit.Result, error), code string, since *int64, limit int) ([]models.Transaction, error) {
	code = strings.ToUpper(code)
	res, err := fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	list, err := x.decodeList(res, operation)
	if err != nil {
		return nil, err
	}
	unified := x.engine.Resolver().Currency(code)
	txs := x.engine.ParseTransactions(list, unified)
	return processor.FilterByCurrencySinceLimit(txs, unified, since, limit), nil
}

// WithdrawFee returns the fixed withdrawal fee the venue charges for code.
func (x *Exchange) WithdrawFee(code string) (float64, bool) {
	fee, ok := x.profile.WithdrawFees[strings.ToUpper(code)]
	return fee, ok
}
