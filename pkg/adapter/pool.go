package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("adapter pool closed")

// Pool hands out connected adapters for one database target. At most Size
// adapters exist at once, and each is held by a single caller between
// Acquire and Release.
type Pool struct {
	cfg    Config
	newFn  Factory
	logger *slog.Logger

	slots chan struct{}
	idle  chan Adapter

	mu     sync.Mutex
	open   []Adapter
	closed bool
}

// NewPool creates a pool of adapters built by factory and connected with cfg.
// A size below one is treated as one, and adapters implementing
// ConnectionLimiter can lower it further.
func NewPool(cfg Config, factory Factory, size int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if size < 1 {
		size = 1
	}
	if limiter, ok := factory(logger).(ConnectionLimiter); ok {
		if n := limiter.MaxConnections(); n > 0 && n < size {
			size = n
		}
	}
	return &Pool{
		cfg:    cfg,
		newFn:  factory,
		logger: logger,
		slots:  make(chan struct{}, size),
		idle:   make(chan Adapter, size),
	}
}

// Size returns the maximum number of adapters the pool will open.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Acquire checks out an adapter, connecting a new one when no idle adapter
// is available and the pool is below its size. It blocks until an adapter is
// free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p.slots <- struct{}{}:
	}

	if p.isClosed() {
		<-p.slots
		return nil, ErrPoolClosed
	}

	select {
	case a := <-p.idle:
		return a, nil
	default:
	}

	a := p.newFn(p.logger)
	if err := a.Connect(ctx, p.cfg); err != nil {
		<-p.slots
		return nil, fmt.Errorf("connect %s: %w", p.cfg.Type, err)
	}

	p.mu.Lock()
	p.open = append(p.open, a)
	p.mu.Unlock()
	p.logger.Debug("opened pooled connection", slog.String("adapter", p.cfg.Type), slog.Int("open", p.openCount()))
	return a, nil
}

// Release checks a previously acquired adapter back in.
func (p *Pool) Release(a Adapter) {
	if a == nil {
		return
	}
	p.idle <- a
	<-p.slots
}

// Close closes every adapter the pool opened. Adapters still checked out are
// closed too; callers must not use them afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, a := range p.open {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.open = nil
	return errors.Join(errs...)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.open)
}
