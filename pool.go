package pdfservice

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one engine is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// PoolEngine is an Engine the pool can shut down.
type PoolEngine interface {
	Engine
	Close() error
}

// EngineFactory creates one pooled engine.
type EngineFactory func() PoolEngine

// EnginePool manages engines for parallel rendering.
// Each engine has its own browser instance, enabling true parallelism.
// Engines are created lazily on first acquire to avoid startup delay.
type EnginePool struct {
	size    int
	factory EngineFactory
	engines []PoolEngine
	sem     chan PoolEngine
	mu      sync.Mutex
	created int
	closed  bool
}

// NewEnginePool creates a pool with capacity for n engines.
// A nil factory creates default RodEngines.
func NewEnginePool(n int, factory EngineFactory) *EnginePool {
	if n < 1 {
		n = 1
	}
	if factory == nil {
		factory = func() PoolEngine { return NewRodEngine() }
	}

	return &EnginePool{
		size:    n,
		factory: factory,
		engines: make([]PoolEngine, 0, n),
		sem:     make(chan PoolEngine, n),
	}
}

// Acquire gets an engine from the pool, creating one if needed.
// Blocks until an engine is released or ctx is done.
func (p *EnginePool) Acquire(ctx context.Context) (PoolEngine, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	// Try to get an existing engine (non-blocking)
	select {
	case eng, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return eng, nil
	default:
	}

	// Check if we can create a new engine
	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new engine outside the lock
		eng := p.factory()

		p.mu.Lock()
		p.engines = append(p.engines, eng)
		p.mu.Unlock()

		return eng, nil
	}
	p.mu.Unlock()

	// All engines created, wait for one to be released
	select {
	case eng, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return eng, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an engine to the pool.
// The lock is held while sending so Close cannot close the channel mid-send;
// the channel has room for every engine, so the send never blocks.
func (p *EnginePool) Release(eng PoolEngine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- eng
}

// Close releases all browser resources.
// Returns an aggregated error if multiple engines fail to close.
func (p *EnginePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	engines := p.engines
	p.mu.Unlock()

	var errs []error
	for _, eng := range engines {
		if err := eng.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *EnginePool) Size() int {
	return p.size
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// Compile-time interface check
var _ Engine = (*PooledEngine)(nil)

// PooledEngine renders with engines borrowed from an EnginePool. The engine
// stays borrowed until the rendered document is closed.
type PooledEngine struct {
	pool *EnginePool
}

// NewPooledEngine adapts pool to the Engine interface.
func NewPooledEngine(pool *EnginePool) *PooledEngine {
	return &PooledEngine{pool: pool}
}

// Render borrows an engine for the lifetime of the returned document.
func (e *PooledEngine) Render(ctx context.Context, in RenderInput) (Rendered, error) {
	eng, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var doc Rendered
	defer func() {
		// Also runs when Render panics.
		if doc == nil {
			e.pool.Release(eng)
		}
	}()

	doc, err = eng.Render(ctx, in)
	if err != nil {
		if doc != nil {
			_ = doc.Close()
			doc = nil
		}
		return nil, err
	}
	return &pooledDocument{Rendered: doc, release: func() { e.pool.Release(eng) }}, nil
}

type pooledDocument struct {
	Rendered
	once    sync.Once
	release func()
}

func (d *pooledDocument) Close() error {
	err := d.Rendered.Close()
	d.once.Do(d.release)
	return err
}
