package logger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type fakeCloudWatch struct {
	mu         sync.Mutex
	puts       []*cloudwatch.PutMetricDataInput
	dashboards []*cloudwatch.PutDashboardInput
	err        error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func (f *fakeCloudWatch) PutDashboard(_ context.Context, in *cloudwatch.PutDashboardInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboards = append(f.dashboards, in)
	return &cloudwatch.PutDashboardOutput{}, f.err
}

func withFakeCloudWatch(t *testing.T, namespace string) *fakeCloudWatch {
	t.Helper()
	fake := &fakeCloudWatch{}
	installCloudWatch(fake, namespace, "")
	t.Cleanup(func() { sink.Store(nil) })
	return fake
}

func datums(n int) []cwtypes.MetricDatum {
	out := make([]cwtypes.MetricDatum, n)
	for i := range out {
		out[i] = cwtypes.MetricDatum{MetricName: aws.String("Warnings"), Value: aws.Float64(float64(i))}
	}
	return out
}

func TestPublishMetricsWithoutSink(t *testing.T) {
	sink.Store(nil)
	publishMetrics(context.Background(), datums(3))
}

func TestPublishMetricsChunks(t *testing.T) {
	fake := withFakeCloudWatch(t, "")

	publishMetrics(context.Background(), datums(maxDatumsPerPut+5))

	if len(fake.puts) != 2 {
		t.Fatalf("expected 2 puts, got %d", len(fake.puts))
	}
	if len(fake.puts[0].MetricData) != maxDatumsPerPut || len(fake.puts[1].MetricData) != 5 {
		t.Fatalf("unexpected chunk sizes %d/%d", len(fake.puts[0].MetricData), len(fake.puts[1].MetricData))
	}
	if aws.ToString(fake.puts[0].Namespace) != defaultNamespace {
		t.Fatalf("namespace = %q", aws.ToString(fake.puts[0].Namespace))
	}
}

func TestPublishMetricsStopsOnError(t *testing.T) {
	fake := withFakeCloudWatch(t, "Test")
	fake.err = errors.New("throttled")

	publishMetrics(context.Background(), datums(2*maxDatumsPerPut))

	if len(fake.puts) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.puts))
	}
}

func TestLogMetricPublishesDimensions(t *testing.T) {
	fake := withFakeCloudWatch(t, "Test")

	GetLogger().LogMetric("poller", "requests", 3, "counter", Fields{"venue": "txbit", "attempt": 2})

	if len(fake.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(fake.puts))
	}
	d := fake.puts[0].MetricData[0]
	if aws.ToString(d.MetricName) != "requests" || aws.ToFloat64(d.Value) != 3 {
		t.Fatalf("unexpected datum %+v", d)
	}
	dims := map[string]string{}
	for _, dim := range d.Dimensions {
		dims[aws.ToString(dim.Name)] = aws.ToString(dim.Value)
	}
	if dims["component"] != "poller" || dims["venue"] != "txbit" {
		t.Fatalf("unexpected dimensions %v", dims)
	}
	if _, ok := dims["attempt"]; ok {
		t.Fatalf("non-string field became a dimension: %v", dims)
	}
}

func TestDashboardBody(t *testing.T) {
	fake := withFakeCloudWatch(t, "Test")
	sink.Load().putDashboard(context.Background())

	if len(fake.dashboards) != 1 || aws.ToString(fake.dashboards[0].DashboardName) != "Test" {
		t.Fatalf("unexpected dashboards %+v", fake.dashboards)
	}
	var body struct {
		Widgets []dashboardWidget `json:"widgets"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(fake.dashboards[0].DashboardBody)), &body); err != nil {
		t.Fatalf("dashboard body is not json: %v", err)
	}
	if len(body.Widgets) != 2 || body.Widgets[0].Properties.Metrics[0][0] != "Test" {
		t.Fatalf("unexpected widgets %+v", body.Widgets)
	}
}
