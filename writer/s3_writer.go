package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "cryptonorm/config"
	"cryptonorm/internal/metrics"
	"cryptonorm/logger"
	"cryptonorm/models"
)

// ObjectPutter is the part of the S3 client the writer uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer buffers normalized batches per venue, kind and symbol and uploads
// each buffer as one parquet object on every flush interval and at shutdown.
type S3Writer struct {
	config   *appconfig.Config
	normChan <-chan models.Batch
	s3Client ObjectPutter
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	buffer   map[string]*models.Batch

	objectsWritten int64
	rowsWritten    int64
	errorsCount    int64
}

// NewS3Writer loads the AWS configuration, static credentials win over the
// default chain, and builds the S3 client.
func NewS3Writer(cfg *appconfig.Config, normChan <-chan models.Batch) (*S3Writer, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 writer initialized")

	return NewS3WriterWithClient(cfg, normChan, client), nil
}

// NewS3WriterWithClient uses client as is.
func NewS3WriterWithClient(cfg *appconfig.Config, normChan <-chan models.Batch, client ObjectPutter) *S3Writer {
	return &S3Writer{
		config:   cfg,
		normChan: normChan,
		s3Client: client,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		buffer:   make(map[string]*models.Batch),
	}
}

func (w *S3Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("s3 writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"operation": "start"})

	numWorkers := w.config.Writer.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	w.wg.Add(1)
	go w.flushWorker()

	log.WithFields(logger.Fields{"workers": numWorkers, "flush_interval": w.config.Writer.FlushInterval}).Info("s3 writer started")
	return nil
}

// Stop waits for the workers; the flush worker uploads what is still
// buffered before it exits.
func (w *S3Writer) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.log.WithComponent("s3_writer").Info("stopping s3 writer")
	w.wg.Wait()
	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"objects_written": atomic.LoadInt64(&w.objectsWritten),
		"rows_written":    atomic.LoadInt64(&w.rowsWritten),
		"errors":          atomic.LoadInt64(&w.errorsCount),
	}).Info("s3 writer stopped")
}

func (w *S3Writer) worker(workerID int) {
	defer w.wg.Done()
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"worker_id": workerID})

	for {
		select {
		case <-w.ctx.Done():
			log.Debug("worker stopped due to context cancellation")
			return
		case batch, ok := <-w.normChan:
			if !ok {
				log.Info("normalized channel closed, worker stopping")
				return
			}
			w.addBatch(batch)
		}
	}
}

func (w *S3Writer) flushWorker() {
	defer w.wg.Done()
	interval := w.config.Writer.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drainPending()
			w.flushBuffers("shutdown")
			return
		case <-ticker.C:
			w.flushBuffers("interval")
		}
	}
}

// drainPending buffers batches already queued on the channel.
func (w *S3Writer) drainPending() {
	for {
		select {
		case batch, ok := <-w.normChan:
			if !ok {
				return
			}
			w.addBatch(batch)
		default:
			return
		}
	}
}

func bufferKey(venue string, kind models.Kind, symbol string) string {
	return fmt.Sprintf("%s|%s|%s", venue, kind, symbol)
}

func (w *S3Writer) addBatch(batch models.Batch) {
	if batch.RecordCount == 0 {
		return
	}
	key := bufferKey(batch.Venue, batch.Kind, batch.Symbol)

	w.mu.Lock()
	defer w.mu.Unlock()
	buf, ok := w.buffer[key]
	if !ok {
		buf = &models.Batch{Venue: batch.Venue, Kind: batch.Kind, Symbol: batch.Symbol, Timestamp: batch.Timestamp}
		w.buffer[key] = buf
	}
	buf.Tickers = append(buf.Tickers, batch.Tickers...)
	buf.Trades = append(buf.Trades, batch.Trades...)
	buf.Orders = append(buf.Orders, batch.Orders...)
	buf.Transactions = append(buf.Transactions, batch.Transactions...)
	buf.OrderBooks = append(buf.OrderBooks, batch.OrderBooks...)
	buf.RecordCount += batch.RecordCount
}

func (w *S3Writer) flushBuffers(reason string) {
	w.mu.Lock()
	buffers := w.buffer
	w.buffer = make(map[string]*models.Batch)
	w.mu.Unlock()

	if len(buffers) == 0 {
		return
	}
	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"flushed_buffers": len(buffers),
		"reason":          reason,
	}).Info("flushing buffers")

	for _, batch := range buffers {
		batch.BatchID = uuid.New().String()
		batch.ProcessedAt = time.Now().UTC()
		if err := w.processBatch(*batch); err != nil {
			atomic.AddInt64(&w.errorsCount, 1)
		}
	}
}

func (w *S3Writer) processBatch(batch models.Batch) error {
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"batch_id":     batch.BatchID,
		"venue":        batch.Venue,
		"kind":         string(batch.Kind),
		"symbol":       batch.Symbol,
		"record_count": batch.RecordCount,
	})

	schema, rows := rowsFor(batch)
	if len(rows) == 0 {
		log.Debug("batch has no rows, skipping")
		return nil
	}

	key := w.generateS3Key(batch)
	start := time.Now()
	data, err := encodeParquet(schema, rows, w.config.Writer.Compression)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return err
	}
	if err := w.uploadToS3(key, data); err != nil {
		log.WithError(err).WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": key}).Error("failed to upload to S3")
		return err
	}

	atomic.AddInt64(&w.objectsWritten, 1)
	atomic.AddInt64(&w.rowsWritten, int64(len(rows)))
	metrics.IncObjectWritten(batch.Venue, string(batch.Kind), len(data))
	logger.LogPerformanceEntry(log, "s3_writer", "write_object", time.Since(start), logger.Fields{"s3_key": key, "file_size": len(data), "rows": len(rows)})
	return nil
}

// generateS3Key builds venue=<id>/kind=<kind>/<time path>/<file>. Slashes in
// the symbol are replaced so the symbol stays one path segment.
func (w *S3Writer) generateS3Key(batch models.Batch) string {
	ts := batch.Timestamp.UTC()
	if batch.Timestamp.IsZero() {
		ts = time.Now().UTC()
	}

	timeFormat := w.config.Writer.Partitioning.TimeFormat
	timePath := strings.ReplaceAll(timeFormat, "{year}", fmt.Sprintf("%04d", ts.Year()))
	timePath = strings.ReplaceAll(timePath, "{month}", fmt.Sprintf("%02d", ts.Month()))
	timePath = strings.ReplaceAll(timePath, "{day}", fmt.Sprintf("%02d", ts.Day()))
	timePath = strings.ReplaceAll(timePath, "{hour}", fmt.Sprintf("%02d", ts.Hour()))

	symbol := strings.ReplaceAll(batch.Symbol, "/", "-")
	if symbol == "" {
		symbol = "all"
	}
	id := batch.BatchID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s_%s_%s.parquet", batch.Venue, batch.Kind, symbol, ts.Format("20060102150405"), id)

	return path.Join(
		"venue="+batch.Venue,
		"kind="+string(batch.Kind),
		timePath,
		filename,
	)
}

func (w *S3Writer) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"compression":        w.config.Writer.Compression,
			"cryptonorm-version": w.config.Cryptonorm.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
