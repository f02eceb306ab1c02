package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cryptonorm/internal/channel"
	"cryptonorm/logger"
	"cryptonorm/models"
)

func TestSampleChannels(t *testing.T) {
	ch := channel.NewChannels(2, 1)
	ctx := context.Background()
	ch.SendRaw(ctx, models.RawMessage{Venue: "txbit"})
	ch.SendNorm(ctx, models.Batch{Venue: "txbit"})
	ch.SendNorm(ctx, models.Batch{Venue: "txbit"})

	sampleChannels(logger.GetLogger(), ch)

	if got := testutil.ToFloat64(channelLength.WithLabelValues("raw")); got != 1 {
		t.Fatalf("expected raw length 1, got %v", got)
	}
	if got := testutil.ToFloat64(channelLength.WithLabelValues("norm")); got != 1 {
		t.Fatalf("expected norm length 1, got %v", got)
	}
	if got := testutil.ToFloat64(channelDropped.WithLabelValues("norm")); got != 1 {
		t.Fatalf("expected one dropped batch, got %v", got)
	}
}
