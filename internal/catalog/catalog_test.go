package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonorm/config"
	"cryptonorm/models"
	"cryptonorm/processor"
	"cryptonorm/reader/txbit"
)

const listing = `[
	{"MarketName":"ETH/BTC","MarketCurrency":"ETH","BaseCurrency":"BTC","IsActive":true,"MinTradeSize":0.01},
	{"MarketName":"XBT/USD","MarketCurrency":"XBT","BaseCurrency":"USD","IsActive":"false","MinTradeSize":1}
]`

type fakeFetcher struct {
	calls int32
	gate  chan struct{}
	res   txbit.Result
	err   error
}

func (f *fakeFetcher) Markets(ctx context.Context) (txbit.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	return f.res, f.err
}

func newCatalog(f *fakeFetcher) *Catalog {
	return New(processor.NewEngine(config.DefaultTxbitProfile()), f)
}

func TestLoadParsesListing(t *testing.T) {
	f := &fakeFetcher{res: txbit.Result{Raw: []byte(listing), Present: true}}
	c := newCatalog(f)

	s, err := c.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, s.Markets, 2)

	m, err := c.Market("BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, "XBT/USD", m.ID)
	assert.False(t, m.Active)
	assert.Equal(t, 3, m.Precision.Price)

	assert.Same(t, m, c.ByID()["XBT/USD"])
	assert.Equal(t, []string{"BTC/USD", "ETH/BTC"}, c.Symbols())
}

func TestLoadUsesCacheUnlessReload(t *testing.T) {
	f := &fakeFetcher{res: txbit.Result{Raw: []byte(listing), Present: true}}
	c := newCatalog(f)

	_, err := c.Load(context.Background(), false)
	require.NoError(t, err)
	_, err = c.Load(context.Background(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.calls))

	_, err = c.Load(context.Background(), true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&f.calls))
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	f := &fakeFetcher{res: txbit.Result{Raw: []byte(listing), Present: true}, gate: make(chan struct{})}
	c := newCatalog(f)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(context.Background(), true)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&f.calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&f.calls), int32(5))
	assert.NotNil(t, c.Snapshot())
}

func TestLoadMissingResult(t *testing.T) {
	f := &fakeFetcher{res: txbit.Result{Body: []byte(`{"success":true,"result":null}`)}}
	c := newCatalog(f)

	_, err := c.Load(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrMissingResult))
	assert.Nil(t, c.Snapshot())
}

func TestFailedReloadKeepsSnapshot(t *testing.T) {
	f := &fakeFetcher{res: txbit.Result{Raw: []byte(listing), Present: true}}
	c := newCatalog(f)
	_, err := c.Load(context.Background(), false)
	require.NoError(t, err)

	f.err = errors.New("boom")
	_, err = c.Load(context.Background(), true)
	require.Error(t, err)
	assert.Len(t, c.Snapshot().Markets, 2)
}

func TestEmptyCatalog(t *testing.T) {
	c := newCatalog(&fakeFetcher{})

	assert.NotNil(t, c.ByID())
	assert.Empty(t, c.Symbols())
	_, ok := c.BySymbol("ETH/BTC")
	assert.False(t, ok)
	_, err := c.Market("ETH/BTC")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestReplace(t *testing.T) {
	c := newCatalog(&fakeFetcher{})
	c.Replace([]models.Market{{ID: "LTC/BTC", Symbol: "LTC/BTC", Base: "LTC", Quote: "BTC"}})

	m, ok := c.BySymbol("LTC/BTC")
	require.True(t, ok)
	assert.Equal(t, "LTC", m.Base)
}
