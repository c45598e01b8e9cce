package translate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nestour97/dsp-scraper/services/cache"
)

type countingTranslator struct {
	calls int64
	err   error
}

func (c *countingTranslator) Translate(_ context.Context, text string) (string, error) {
	atomic.AddInt64(&c.calls, 1)
	if c.err != nil {
		return "", c.err
	}
	return "translated:" + text, nil
}

func TestNoopLowercases(t *testing.T) {
	out, err := Noop{}.Translate(context.Background(), "Puis 10,99 €/MOIS")
	require.NoError(t, err)
	assert.Equal(t, "puis 10,99 €/mois", out)
}

func TestMemoCaches(t *testing.T) {
	inner := &countingTranslator{}
	memo := NewMemo(inner, cache.NewMemoryService(time.Minute, time.Minute), 0)

	for i := 0; i < 5; i++ {
		out, err := memo.Translate(context.Background(), "0 € pendant 1 mois")
		require.NoError(t, err)
		assert.Equal(t, "translated:0 € pendant 1 mois", out)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.calls))
}

func TestMemoConcurrentAtMostOnce(t *testing.T) {
	inner := &countingTranslator{}
	memo := NewMemo(inner, cache.NewMemoryService(time.Minute, time.Minute), 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := memo.Translate(context.Background(), "매월 10,900원")
			assert.NoError(t, err)
			assert.Equal(t, "translated:매월 10,900원", out)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.calls))
}

func TestMemoFallsBackOnError(t *testing.T) {
	inner := &countingTranslator{err: errors.New("service unavailable")}
	memo := NewMemo(inner, cache.NewMemoryService(time.Minute, time.Minute), 0)

	out, err := memo.Translate(context.Background(), "Danach 10,99 €")
	require.NoError(t, err)
	assert.Equal(t, "danach 10,99 €", out)

	// Failures are not cached; the service is retried next time.
	_, _ = memo.Translate(context.Background(), "Danach 10,99 €")
	assert.Equal(t, int64(2), atomic.LoadInt64(&inner.calls))
}

func TestMemoEmptyInput(t *testing.T) {
	inner := &countingTranslator{}
	memo := NewMemo(inner, cache.NewMemoryService(time.Minute, time.Minute), 0)

	out, err := memo.Translate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Equal(t, int64(0), atomic.LoadInt64(&inner.calls))
}
