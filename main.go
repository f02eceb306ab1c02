package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptonorm/config"
	"cryptonorm/internal/channel"
	"cryptonorm/internal/metrics"
	"cryptonorm/logger"
	"cryptonorm/models"
	"cryptonorm/processor"
	"cryptonorm/reader/txbit"
	"cryptonorm/venue"
	"cryptonorm/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	fetch := flag.String("fetch", "", "Fetch once and print JSON: markets, ticker, tickers, orderbook, trades, orders, deposits, withdrawals")
	symbol := flag.String("symbol", "", "Unified symbol for -fetch, for example ETH/BTC")
	code := flag.String("code", "", "Currency code for -fetch deposits/withdrawals")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	x := venue.New(cfg)

	if *fetch != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := fetchOnce(ctx, x, *fetch, *symbol, *code); err != nil {
			log.WithError(err).WithFields(logger.Fields{"fetch": *fetch}).Error("fetch failed")
			os.Exit(1)
		}
		return
	}

	log.WithFields(logger.Fields{
		"service": cfg.Cryptonorm.Name,
		"version": cfg.Cryptonorm.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting cryptonorm")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		logger.InitCloudWatch(cw.Region, cw.Namespace, cw.Dashboard)
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}
	if strings.ToLower(cfg.Logging.Level) == "report" || cfg.Metrics.CloudWatch.Enabled {
		logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)
	}

	if _, err := x.LoadMarkets(ctx, false); err != nil {
		log.WithError(err).Error("failed to load markets")
		os.Exit(1)
	}
	go x.Catalog().Run(ctx, time.Duration(cfg.Venue.MarketsRefreshMin)*time.Minute)

	channels := channel.NewChannels(cfg.Channels.RawBuffer, cfg.Channels.ProcessedBuffer)
	if cfg.Metrics.Enabled {
		metrics.StartChannelSizeMetrics(ctx, channels, 10*time.Second)
	}

	poller := txbit.NewPoller(cfg, x.Client(), x.Catalog(), channels)
	proc := processor.NewProcessor(cfg, x.Engine(), x.Catalog(), channels)

	var s3Writer *writer.S3Writer
	if cfg.Storage.S3.Enabled {
		s3Writer, err = writer.NewS3Writer(cfg, channels.Norm)
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; normalized batches are logged only")
	}

	// The writer outlives the processor so the final processor flush is
	// still uploaded.
	writerCtx, cancelWriter := context.WithCancel(context.Background())
	defer cancelWriter()

	var wg sync.WaitGroup
	if s3Writer != nil {
		if err := s3Writer.Start(writerCtx); err != nil {
			log.WithError(err).Warn("s3 writer failed to start")
		}
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drainBatches(ctx, channels.Norm)
		}()
	}
	if err := proc.Start(ctx); err != nil {
		log.WithError(err).Warn("processor failed to start")
	}
	if err := poller.Start(ctx); err != nil {
		log.WithError(err).Warn("poller failed to start")
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		poller.Stop()
		proc.Stop()
		cancelWriter()
		if s3Writer != nil {
			s3Writer.Stop()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	stats := channels.GetStats()
	log.WithFields(logger.Fields{
		"raw_sent":     stats.RawSent,
		"raw_dropped":  stats.RawDropped,
		"norm_sent":    stats.NormSent,
		"norm_dropped": stats.NormDropped,
	}).Info("cryptonorm stopped")
}

func drainBatches(ctx context.Context, norm <-chan models.Batch) {
	log := logger.GetLogger().WithComponent("main")
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-norm:
			if !ok {
				return
			}
			log.WithFields(logger.Fields{
				"batch_id": b.BatchID,
				"kind":     string(b.Kind),
				"symbol":   b.Symbol,
				"records":  b.RecordCount,
			}).Info("normalized batch")
		}
	}
}

func fetchOnce(ctx context.Context, x *venue.Exchange, what, symbol, code string) error {
	var (
		out interface{}
		err error
	)
	switch what {
	case "markets":
		out, err = x.FetchMarkets(ctx)
	case "ticker":
		out, err = x.FetchTicker(ctx, symbol)
	case "tickers":
		var symbols []string
		if symbol != "" {
			symbols = strings.Split(symbol, ",")
		}
		out, err = x.FetchTickers(ctx, symbols)
	case "orderbook":
		out, err = x.FetchOrderBook(ctx, symbol, 0)
	case "trades":
		out, err = x.FetchTrades(ctx, symbol, nil, 0)
	case "orders":
		out, err = x.FetchOrders(ctx, symbol, nil, 0)
	case "deposits":
		out, err = x.FetchDeposits(ctx, code, nil, 0)
	case "withdrawals":
		out, err = x.FetchWithdrawals(ctx, code, nil, 0)
	default:
		return fmt.Errorf("unknown fetch target %q", what)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
