package logger

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

type counterStat struct {
	count int64
	bytes int64
}

var (
	components sync.Map // component -> *componentStat
	counters   sync.Map // name -> *counterStat
)

func componentStats(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&componentStats(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&componentStats(component).errors, 1)
}

// RecordCount adds n occurrences of name, for example records normalized per
// kind or objects written to S3, together with their size in bytes.
func RecordCount(name string, n int, size int) {
	v, _ := counters.LoadOrStore(name, &counterStat{})
	cs := v.(*counterStat)
	atomic.AddInt64(&cs.count, int64(n))
	atomic.AddInt64(&cs.bytes, int64(size))
}

// Snapshot returns the current counter values keyed by name.
func Snapshot() map[string]int64 {
	out := map[string]int64{}
	counters.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(&v.(*counterStat).count)
		return true
	})
	return out
}

// StartReport logs runtime and pipeline statistics every interval until ctx is
// done, publishing them to CloudWatch when a client is configured.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	heapMB := float64(mem.HeapAlloc) / 1024 / 1024

	var totalWarns, totalErrors int64
	perComponent := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		w, e := atomic.LoadInt64(&cs.warns), atomic.LoadInt64(&cs.errors)
		totalWarns += w
		totalErrors += e
		perComponent[k.(string)] = map[string]int64{"warns": w, "errors": e}
		return true
	})

	counterData := Snapshot()

	log.WithComponent("report").WithFields(Fields{
		"goroutines": runtime.NumGoroutine(),
		"heap_mb":    heapMB,
		"warns":      totalWarns,
		"errors":     totalErrors,
		"components": perComponent,
		"counters":   counterData,
	}).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("HeapMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(heapMB)},
		{MetricName: aws.String("Goroutines"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(runtime.NumGoroutine()))},
		{MetricName: aws.String("Warnings"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(totalWarns))},
		{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(totalErrors))},
	}

	names := make([]string, 0, len(counterData))
	for name := range counterData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Counter"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Name"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(counterData[name])),
		})
	}

	publishMetrics(ctx, data)
}
