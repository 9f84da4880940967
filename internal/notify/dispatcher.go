package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

const (
	defaultWorkers = 4
	defaultTimeout = 5 * time.Second
)

type DispatcherOptions struct {
	// Workers caps concurrent deliveries.
	Workers int

	// Timeout bounds how long Dispatch waits for a result, including the wait
	// for a free worker.
	Timeout time.Duration

	// OnResult observes every result (metrics). Optional.
	OnResult func(DeliveryResult)
}

// Dispatcher forwards envelopes to one Backend. Deliveries run on at most
// Workers goroutines; a delivery that outlives Timeout keeps running in the
// background but the caller gets ErrDeliveryTimeout straight away.
type Dispatcher struct {
	backend  Backend
	timeout  time.Duration
	onResult func(DeliveryResult)

	slots *semaphore.Weighted
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(backend Backend, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Dispatcher{
		backend:  backend,
		timeout:  opts.Timeout,
		onResult: opts.OnResult,
		slots:    semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// Kind reports the selected backend.
func (d *Dispatcher) Kind() Kind { return d.backend.Kind() }

// Backend returns the backend envelopes are delivered to.
func (d *Dispatcher) Backend() Backend { return d.backend }

// Dispatch delivers env and reports the outcome. It never panics on backend
// failure and never waits longer than the configured timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) DeliveryResult {
	start := time.Now()
	res := DeliveryResult{Kind: d.backend.Kind(), To: env.To}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		res.Err = ErrDispatcherClosed
		return d.finish(ctx, res, start)
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.slots.Acquire(ctx, 1); err != nil {
		d.wg.Done()
		res.Err = ErrDeliveryTimeout
		return d.finish(ctx, res, start)
	}

	// The delivery gets its own deadline so it is not cut short when the
	// caller stops waiting; the slot is released when it really ends.
	sendCtx, sendCancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	done := make(chan error, 1)
	go func() {
		defer d.wg.Done()
		defer d.slots.Release(1)
		defer sendCancel()
		done <- d.backend.Send(sendCtx, env)
	}()

	select {
	case err := <-done:
		res.Err = err
	case <-ctx.Done():
		res.Err = ErrDeliveryTimeout
	}
	return d.finish(ctx, res, start)
}

func (d *Dispatcher) finish(ctx context.Context, res DeliveryResult, start time.Time) DeliveryResult {
	res.Duration = time.Since(start)

	level := slog.LevelDebug
	if res.Err != nil {
		level = slog.LevelWarn
	}
	slogx.FromContext(ctx).Log(ctx, level, "notification dispatched",
		"backend", res.Kind.String(),
		"delivered", res.Delivered(),
		"duration_ms", res.Duration.Milliseconds(),
		"err", res.Err,
	)

	if d.onResult != nil {
		d.onResult(res)
	}
	return res
}

// Close stops accepting envelopes and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
