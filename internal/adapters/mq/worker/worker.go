// Package worker runs score submissions against the store off the
// caller's goroutine and reports each outcome back.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/bonk/internal/domain/model"
	"github.com/okian/bonk/internal/domain/scores"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

const defaultJobTimeout = 10 * time.Second

// Submitter records a score for a player.
type Submitter interface {
	Submit(ctx context.Context, name string, score int) (scores.Result, error)
}

// Source is where workers read submissions from.
type Source interface {
	Dequeue() <-chan model.Submission
}

// Completion is the outcome of one submission.
type Completion struct {
	Submission model.Submission
	Result     scores.Result
	Err        error
}

// CompleteFunc receives every Completion. It runs on the worker goroutine.
type CompleteFunc func(ctx context.Context, c Completion)

// InMemoryWorker takes submissions off the source one at a time.
type InMemoryWorker struct {
	source     Source
	submitter  Submitter
	complete   CompleteFunc
	name       string
	jobTimeout time.Duration
	logger     logger.Logger

	done chan struct{}
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(source Source, submitter Submitter, complete CompleteFunc, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:     source,
		submitter:  submitter,
		complete:   complete,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		logger:     logger.Nop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.complete == nil {
		w.complete = func(context.Context, Completion) {}
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes submissions until the source is closed and drained or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, s)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	res, err := w.submitter.Submit(jobCtx, s.Name, s.Score)
	if err != nil {
		err = fmt.Errorf("submission %s: %w", s.ID, err)
		w.logger.Warn(ctx, "submission failed",
			logger.String("submission_id", s.ID),
			logger.Any("round", s.Round),
			logger.Error(err),
		)
	} else {
		w.logger.Debug(ctx, "submission stored",
			logger.String("submission_id", s.ID),
			logger.String("result", res.String()),
		)
	}
	w.complete(ctx, Completion{Submission: s, Result: res, Err: err})
}

// Pool manages a fixed set of workers sharing one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	logger  logger.Logger

	startOnce sync.Once
	started   atomic.Bool
}

// NewPool creates workerCount workers. workerCount < 1 is treated as 1.
func NewPool(workerCount int, source Source, submitter Submitter, complete CompleteFunc, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		logger:  logger.Nop(),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(source, submitter, complete, wopts...)
	}
	p.logger = p.workers[0].logger
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Later calls do nothing.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
	})
}

// Shutdown closes the source, if it can be closed, and waits for the
// workers to drain it or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
