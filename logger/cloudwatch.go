package logger

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	defaultNamespace = "Cryptonorm"
	maxDatumsPerPut  = 1000
)

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	PutDashboard(ctx context.Context, in *cloudwatch.PutDashboardInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error)
}

type cloudWatchSink struct {
	api       cloudWatchAPI
	namespace string
	dashboard string
}

// sink is nil until InitCloudWatch succeeds; publishing is a no-op before.
var sink atomic.Pointer[cloudWatchSink]

// InitCloudWatch loads the default AWS configuration for region (AWS_REGION
// when empty), installs the sink and puts the dashboard. Failures leave
// publishing disabled.
func InitCloudWatch(region, namespace, dashboard string) {
	log := GetLogger().WithComponent("cloudwatch")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		log.WithError(err).Warn("aws configuration unavailable, cloudwatch publishing disabled")
		return
	}

	s := installCloudWatch(cloudwatch.NewFromConfig(cfg), namespace, dashboard)
	log.WithFields(Fields{"region": region, "namespace": s.namespace, "dashboard": s.dashboard}).Info("cloudwatch publishing enabled")
	s.putDashboard(context.Background())
}

func installCloudWatch(api cloudWatchAPI, namespace, dashboard string) *cloudWatchSink {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if dashboard == "" {
		dashboard = namespace
	}
	s := &cloudWatchSink{api: api, namespace: namespace, dashboard: dashboard}
	sink.Store(s)
	return s
}

func publishMetrics(ctx context.Context, data []cwtypes.MetricDatum) {
	s := sink.Load()
	if s == nil || len(data) == 0 {
		return
	}
	for start := 0; start < len(data); start += maxDatumsPerPut {
		end := min(start+maxDatumsPerPut, len(data))
		_, err := s.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			GetLogger().WithComponent("cloudwatch").WithFields(Fields{"datums": end - start}).WithError(err).Warn("put metric data failed")
			return
		}
	}
}

type dashboardWidget struct {
	Type       string          `json:"type"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Properties widgetRendering `json:"properties"`
}

type widgetRendering struct {
	Metrics [][]string `json:"metrics"`
	Period  int        `json:"period"`
	Stat    string     `json:"stat"`
	Title   string     `json:"title"`
}

func (s *cloudWatchSink) dashboardBody() string {
	widget := func(title, stat string, names ...string) dashboardWidget {
		metrics := make([][]string, 0, len(names))
		for _, n := range names {
			metrics = append(metrics, []string{s.namespace, n})
		}
		return dashboardWidget{Type: "metric", Width: 12, Height: 6, Properties: widgetRendering{
			Metrics: metrics, Period: 60, Stat: stat, Title: title,
		}}
	}
	body, _ := json.Marshal(map[string][]dashboardWidget{"widgets": {
		widget("Normalization warnings and errors", "Sum", "Warnings", "Errors"),
		widget("Process", "Average", "HeapMB", "Goroutines"),
	}})
	return string(body)
}

func (s *cloudWatchSink) putDashboard(ctx context.Context) {
	_, err := s.api.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(s.dashboard),
		DashboardBody: aws.String(s.dashboardBody()),
	})
	if err != nil {
		GetLogger().WithComponent("cloudwatch").WithError(err).Warn("put dashboard failed")
	}
}
