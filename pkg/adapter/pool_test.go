package adapter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	connectErr error
	limit      int

	inUse  atomic.Int32
	closed atomic.Bool
}

func (f *fakeAdapter) Connect(context.Context, Config) error { return f.connectErr }

func (f *fakeAdapter) FetchColumns(context.Context, Location) ([]ColumnMetadata, error) {
	if f.inUse.Add(1) > 1 {
		return nil, errors.New("adapter used concurrently")
	}
	defer f.inUse.Add(-1)
	time.Sleep(time.Millisecond)
	return []ColumnMetadata{{Name: "id"}}, nil
}

func (f *fakeAdapter) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeAdapter) MaxConnections() int { return f.limit }

func fakeFactory(created *[]*fakeAdapter, mu *sync.Mutex, limit int) Factory {
	return func(*slog.Logger) Adapter {
		a := &fakeAdapter{limit: limit}
		mu.Lock()
		*created = append(*created, a)
		mu.Unlock()
		return a
	}
}

func TestPool_ReusesIdleAdapter(t *testing.T) {
	var (
		mu      sync.Mutex
		created []*fakeAdapter
	)
	pool := NewPool(Config{Type: "fake"}, fakeFactory(&created, &mu, 0), 2, nil)
	ctx := context.Background()

	a, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(a)

	b, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b, "idle adapter should be reused")
	pool.Release(b)

	require.NoError(t, pool.Close())
	assert.True(t, a.(*fakeAdapter).closed.Load())
}

func TestPool_NeverSharesAdapter(t *testing.T) {
	var (
		mu      sync.Mutex
		created []*fakeAdapter
	)
	pool := NewPool(Config{Type: "fake"}, fakeFactory(&created, &mu, 0), 3, nil)
	defer func() { _ = pool.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := pool.Acquire(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer pool.Release(a)
			if _, err := a.FetchColumns(ctx, Location{Table: "t"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	// One extra adapter is built by NewPool to probe for a connection limit.
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, len(created)-1, 3)
}

func TestPool_ConnectionLimiter(t *testing.T) {
	var (
		mu      sync.Mutex
		created []*fakeAdapter
	)
	pool := NewPool(Config{Type: "fake"}, fakeFactory(&created, &mu, 1), 8, nil)
	assert.Equal(t, 1, pool.Size())
}

func TestPool_AcquireBlocksUntilContextDone(t *testing.T) {
	var (
		mu      sync.Mutex
		created []*fakeAdapter
	)
	pool := NewPool(Config{Type: "fake"}, fakeFactory(&created, &mu, 0), 1, nil)
	defer func() { _ = pool.Close() }()

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(held)
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(again)
}

func TestPool_ConnectFailureFreesSlot(t *testing.T) {
	failing := func(*slog.Logger) Adapter { return &fakeAdapter{connectErr: assert.AnError} }
	pool := NewPool(Config{Type: "fake"}, failing, 1, nil)
	defer func() { _ = pool.Close() }()

	for range 3 {
		_, err := pool.Acquire(context.Background())
		require.ErrorIs(t, err, assert.AnError)
	}
}

func TestPool_AcquireAfterClose(t *testing.T) {
	var (
		mu      sync.Mutex
		created []*fakeAdapter
	)
	pool := NewPool(Config{Type: "fake"}, fakeFactory(&created, &mu, 0), 1, nil)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}
