// Registers:
//
//	#cryptonorm_records_normalized_total{venue,kind}
//	#cryptonorm_normalize_errors_total{venue,kind}
//	#cryptonorm_requests_total{venue,endpoint,outcome}
//	#cryptonorm_objects_written_total{venue,kind}
//	#cryptonorm_channel_length{buffer}
//	#cryptonorm_channel_dropped{buffer}
//	#go_* and process_* system metrics
//
// Serve exposes them on the configured address under /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptonorm/logger"
)

var (
	once     sync.Once
	registry = prometheus.NewRegistry()

	recordsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptonorm_records_normalized_total",
			Help: "Number of raw records turned into unified records",
		},
		[]string{"venue", "kind"},
	)
	normalizeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptonorm_normalize_errors_total",
			Help: "Number of raw messages rejected by a normalizer",
		},
		[]string{"venue", "kind"},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptonorm_requests_total",
			Help: "Number of venue REST requests by outcome",
		},
		[]string{"venue", "endpoint", "outcome"},
	)
	objectsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptonorm_objects_written_total",
			Help: "Number of parquet objects uploaded",
		},
		[]string{"venue", "kind"},
	)
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry.MustRegister(recordsNormalized, normalizeErrors, requests, objectsWritten, channelLength, channelDropped)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.GetLogger().WithComponent("metrics").WithFields(logger.Fields{"listen": addr}).Info("serving prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// AddNormalized counts n unified records of kind produced for venue.
func AddNormalized(venue, kind string, n int) {
	if n <= 0 {
		return
	}
	recordsNormalized.WithLabelValues(venue, kind).Add(float64(n))
	logger.RecordCount("normalized_"+kind, n, 0)
}

// IncNormalizeError counts a raw message the normalizer rejected.
func IncNormalizeError(venue, kind string) {
	normalizeErrors.WithLabelValues(venue, kind).Inc()
}

// IncRequest counts one venue request. outcome is "ok" or "error".
func IncRequest(venue, endpoint, outcome string) {
	requests.WithLabelValues(venue, endpoint, outcome).Inc()
}

// IncObjectWritten counts an uploaded object of size bytes.
func IncObjectWritten(venue, kind string, size int) {
	objectsWritten.WithLabelValues(venue, kind).Inc()
	logger.RecordCount("s3_objects_"+kind, 1, size)
}
