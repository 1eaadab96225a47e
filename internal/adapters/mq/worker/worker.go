// Package worker drains the ingest queue and hands each event to a Recorder.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Recorder persists one event and refreshes whatever derives from it.
type Recorder interface {
	Record(ctx context.Context, e model.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Next(ctx context.Context) (model.Event, bool)
	Close() error
}

// Pool runs a fixed number of workers against one queue.
type Pool struct {
	size     int
	queue    Queue
	recorder Recorder
	name     string
	logger   logger.Logger

	wg        sync.WaitGroup
	running   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	started   atomic.Bool
}

// NewPool creates a pool of size workers. A size below one picks a default
// from the CPU count.
func NewPool(size int, q Queue, r Recorder, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		size:     size,
		queue:    q,
		recorder: r,
		name:     "worker-pool",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	metrics.UpdateWorkerCount(size)
	return p
}

// Start launches the workers. They stop when ctx is canceled or the queue
// is closed and drained. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := range p.size {
		p.wg.Add(1)
		go p.run(ctx, p.logger.With(logger.String("worker", strconv.Itoa(i))))
	}
	p.logger.Info(ctx, "workers started", logger.Int("count", p.size))
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()
	metrics.UpdateWorkerActiveCount(int(p.running.Add(1)))
	defer func() { metrics.UpdateWorkerActiveCount(int(p.running.Add(-1))) }()

	for {
		e, ok := p.queue.Next(ctx)
		if !ok {
			return
		}
		if err := p.process(ctx, e); err != nil {
			log.Error(ctx, "record failed",
				logger.Session(e.SessionID),
				logger.Event(e.ID),
				logger.Error(err),
			)
		}
	}
}

func (p *Pool) process(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := p.recorder.Record(ctx, e); err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record")
		return fmt.Errorf("record event %s: %w", e.ID, err)
	}
	p.processed.Add(1)
	metrics.RecordEventRecorded()
	return nil
}

// Processed returns how many events were recorded successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many events the recorder rejected.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Shutdown closes the queue and waits for the workers to drain it, or for
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info(ctx, "workers stopped",
			logger.Any("processed", p.processed.Load()),
			logger.Any("failed", p.failed.Load()),
		)
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}
