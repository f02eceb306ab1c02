package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	appconfig "cryptonorm/config"
	"cryptonorm/internal/channel"
	"cryptonorm/internal/metrics"
	"cryptonorm/internal/symbols"
	"cryptonorm/logger"
	"cryptonorm/models"
)

// MarketSource supplies the market context of the current catalog snapshot.
type MarketSource interface {
	ByID() models.MarketsByID
	BySymbol(symbol string) (*models.Market, bool)
}

// Processor drains raw venue messages, normalizes them with an Engine and
// groups the records into batches per venue, kind and symbol. A batch is
// flushed to the normalized channel when it reaches the configured size or
// when it has been open longer than the batch timeout.
type Processor struct {
	config   *appconfig.Config
	engine   *Engine
	markets  MarketSource
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log

	batches   map[string]*models.Batch
	lastFlush map[string]time.Time

	messagesProcessed int64
	batchesProcessed  int64
	errorsCount       int64
	recordsProcessed  int64
}

func NewProcessor(cfg *appconfig.Config, engine *Engine, markets MarketSource, ch *channel.Channels) *Processor {
	return &Processor{
		config:    cfg,
		engine:    engine,
		markets:   markets,
		channels:  ch,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
		batches:   make(map[string]*models.Batch),
		lastFlush: make(map[string]time.Time),
	}
}

func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("processor already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	numWorkers := p.config.Processor.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	p.log.WithComponent("processor").WithFields(logger.Fields{
		"workers": numWorkers,
		"venue":   p.engine.Venue(),
	}).Info("starting processor")

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.batchFlusher()

	go p.metricsReporter(ctx)
	return nil
}

// Stop waits for the workers to exit and flushes what is left. Cancel the
// context passed to Start or close the raw channel first.
func (p *Processor) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.flushAllBatches()
	p.log.WithComponent("processor").Info("processor stopped")
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.WithComponent("processor").WithFields(logger.Fields{"worker_id": workerID})

	for {
		select {
		case <-p.ctx.Done():
			log.Debug("worker stopped due to context cancellation")
			return
		case msg, ok := <-p.channels.Raw:
			if !ok {
				log.Debug("raw channel closed, worker stopping")
				return
			}

			start := time.Now()
			n := p.processMessage(msg)
			atomic.AddInt64(&p.messagesProcessed, 1)
			atomic.AddInt64(&p.recordsProcessed, int64(n))

			logger.LogPerformanceEntry(log, "processor", "process_message", time.Since(start), logger.Fields{
				"venue":   msg.Venue,
				"kind":    string(msg.Kind),
				"symbol":  msg.Symbol,
				"records": n,
			})
		}
	}
}

// processMessage normalizes one raw message into the open batch for its key
// and returns the number of records produced.
func (p *Processor) processMessage(msg models.RawMessage) int {
	log := p.log.WithComponent("processor").WithFields(logger.Fields{
		"venue":  msg.Venue,
		"kind":   string(msg.Kind),
		"symbol": msg.Symbol,
	})

	batch, err := p.Normalize(msg)
	if err != nil {
		atomic.AddInt64(&p.errorsCount, 1)
		metrics.IncNormalizeError(msg.Venue, string(msg.Kind))
		log.WithError(err).Warn("failed to normalize message")
		return 0
	}
	if batch.RecordCount == 0 {
		return 0
	}

	metrics.AddNormalized(msg.Venue, string(msg.Kind), batch.RecordCount)
	p.addToBatch(batch)
	logger.LogDataFlowEntry(log, "raw_channel", "norm_channel", batch.RecordCount, string(msg.Kind))
	return batch.RecordCount
}

// Normalize decodes the message payload and runs the normalizer for its
// kind. The payload may be a list or a single object.
func (p *Processor) Normalize(msg models.RawMessage) (models.Batch, error) {
	var decoded interface{}
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		return models.Batch{}, fmt.Errorf("decode %s payload: %w", msg.Kind, err)
	}
	if decoded == nil {
		return models.Batch{}, p.engine.MissingResult(string(msg.Kind), nil)
	}

	out := models.Batch{
		Venue:     msg.Venue,
		Kind:      msg.Kind,
		Symbol:    msg.Symbol,
		Timestamp: msg.Timestamp,
	}
	byID := p.markets.ByID()
	market := p.marketFor(msg.Symbol)

	var err error
	switch msg.Kind {
	case models.KindTicker:
		out.Tickers, err = p.engine.ParseTickers(asList(decoded), market, byID)
		out.RecordCount = len(out.Tickers)
	case models.KindTrade:
		out.Trades = p.engine.ParseTrades(asList(decoded), market, nil)
		out.RecordCount = len(out.Trades)
	case models.KindOrder:
		out.Orders, err = p.engine.ParseOrders(asList(decoded), market, byID)
		out.RecordCount = len(out.Orders)
	case models.KindTransaction:
		out.Transactions = p.engine.ParseTransactions(asList(decoded), "")
		out.RecordCount = len(out.Transactions)
	case models.KindOrderBook:
		var ob models.OrderBook
		ob, err = p.engine.ParseOrderBook(decoded, msg.Symbol, 0)
		if err == nil {
			ob.Timestamp = msTime(msg.Timestamp)
			out.OrderBooks = []models.OrderBook{ob}
			out.RecordCount = 1
		}
	default:
		err = fmt.Errorf("unsupported record kind %q", msg.Kind)
	}
	if err != nil {
		return models.Batch{}, err
	}
	return out, nil
}

func (p *Processor) marketFor(symbol string) *models.Market {
	if symbol == "" {
		return nil
	}
	if m, ok := p.markets.BySymbol(symbol); ok {
		return m
	}
	stub := &models.Market{Symbol: symbol}
	if base, quote, ok := strings.Cut(symbol, symbols.UnifiedSeparator); ok {
		stub.Base, stub.Quote = base, quote
	}
	return stub
}

func asList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}

func msTime(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func batchKey(b models.Batch) string {
	return fmt.Sprintf("%s_%s_%s", b.Venue, b.Kind, b.Symbol)
}

func (p *Processor) addToBatch(in models.Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := batchKey(in)
	batch, exists := p.batches[key]
	if !exists {
		batch = &models.Batch{
			BatchID:   uuid.New().String(),
			Venue:     in.Venue,
			Kind:      in.Kind,
			Symbol:    in.Symbol,
			Timestamp: in.Timestamp,
		}
		p.batches[key] = batch
		p.lastFlush[key] = time.Now()
	}

	batch.Tickers = append(batch.Tickers, in.Tickers...)
	batch.Trades = append(batch.Trades, in.Trades...)
	batch.Orders = append(batch.Orders, in.Orders...)
	batch.Transactions = append(batch.Transactions, in.Transactions...)
	batch.OrderBooks = append(batch.OrderBooks, in.OrderBooks...)
	batch.RecordCount += in.RecordCount
	if in.Timestamp.After(batch.Timestamp) {
		batch.Timestamp = in.Timestamp
	}

	if batch.RecordCount >= p.config.Processor.BatchSize {
		p.flushBatch(key)
	}
}

func (p *Processor) batchFlusher() {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.flushTimedOutBatches()
		}
	}
}

func (p *Processor) flushTimedOutBatches() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, last := range p.lastFlush {
		if now.Sub(last) >= p.config.Processor.BatchTimeout {
			p.flushBatch(key)
		}
	}
}

// flushBatch hands the batch to the writer. Callers hold p.mu.
func (p *Processor) flushBatch(key string) {
	batch, exists := p.batches[key]
	if !exists || batch.RecordCount == 0 {
		return
	}
	batch.ProcessedAt = time.Now()

	log := p.log.WithComponent("processor").WithFields(logger.Fields{
		"batch_id":     batch.BatchID,
		"batch_key":    key,
		"record_count": batch.RecordCount,
	})

	if !p.channels.SendNorm(context.Background(), *batch) {
		log.Warn("batch not sent")
	} else {
		atomic.AddInt64(&p.batchesProcessed, 1)
		log.Debug("batch flushed")
	}
	delete(p.batches, key)
	delete(p.lastFlush, key)
}

func (p *Processor) flushAllBatches() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.batches {
		p.flushBatch(key)
	}
}

func (p *Processor) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reportMetrics()
		}
	}
}

func (p *Processor) reportMetrics() {
	p.mu.RLock()
	activeBatches := len(p.batches)
	p.mu.RUnlock()

	messages := atomic.LoadInt64(&p.messagesProcessed)
	errorsCount := atomic.LoadInt64(&p.errorsCount)
	errorRate := float64(0)
	if messages > 0 {
		errorRate = float64(errorsCount) / float64(messages)
	}

	fields := logger.Fields{"venue": p.engine.Venue()}
	p.log.LogMetric("processor", "messages_processed", messages, "counter", fields)
	p.log.LogMetric("processor", "batches_processed", atomic.LoadInt64(&p.batchesProcessed), "counter", fields)
	p.log.LogMetric("processor", "records_processed", atomic.LoadInt64(&p.recordsProcessed), "counter", fields)
	p.log.LogMetric("processor", "errors_count", errorsCount, "counter", fields)
	p.log.LogMetric("processor", "error_rate", errorRate, "gauge", fields)
	p.log.LogMetric("processor", "active_batches", activeBatches, "gauge", fields)
}
