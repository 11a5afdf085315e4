package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox execution timed out")
)

// Runtime wraps a goja VM that is reset between documents.
type Runtime struct {
	vm      *goja.Runtime
	timeout time.Duration
}

func newRuntime(timeout time.Duration) *Runtime {
	r := &Runtime{timeout: timeout}
	r.Reset()
	return r
}

// Reset replaces the VM so nothing from a previous document survives.
func (r *Runtime) Reset() {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = vm.Set(name, goja.Undefined())
	}
	r.vm = vm
}

// run executes fn under the execution timeout. A timer or a cancelled
// context interrupts the VM; the interrupt is always cleared before
// returning so the next entry starts clean.
func (r *Runtime) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := time.NewTimer(r.timeout)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-timer.C:
			r.vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	err := fn()

	close(done)
	timer.Stop()
	wg.Wait()
	r.vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok && !errors.Is(cause, ErrTimeout) {
			return fmt.Errorf("sandbox interrupted: %w", cause)
		}
		return ErrTimeout
	}
	return err
}

// Pool bounds the number of concurrently loaded documents.
type Pool struct {
	timeout  time.Duration
	runtimes chan *Runtime
	size     int

	mu     sync.RWMutex
	closed bool
}

// NewPool pre-creates size runtimes.
func NewPool(size int, timeout time.Duration) *Pool {
	if size <= 0 {
		size = 2
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	p := &Pool{
		timeout:  timeout,
		runtimes: make(chan *Runtime, size),
		size:     size,
	}
	for i := 0; i < size; i++ {
		p.runtimes <- newRuntime(timeout)
	}
	return p
}

// Acquire waits for a free runtime.
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case r, ok := <-p.runtimes:
		if !ok {
			return nil, ErrPoolClosed
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release resets r and returns it to the pool.
func (p *Pool) Release(r *Runtime) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}
	r.Reset()
	select {
	case p.runtimes <- r:
	default:
	}
}

// Close drops all idle runtimes. Runtimes still in use are discarded
// when released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.runtimes)
	for range p.runtimes {
	}
}

// Stats reports pool occupancy.
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.runtimes),
		"in_use":    p.size - len(p.runtimes),
		"closed":    p.closed,
	}
}
