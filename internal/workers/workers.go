package workers

import (
	"context"
	"sync"
)

type Workers struct {
	mu      sync.Mutex
	workers []Worker
	started bool
}

func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Start starts every worker in order. A second call before Stop is a no-op.
func (w *Workers) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	for _, worker := range w.workers {
		worker.Start(ctx)
	}
}

// Stop stops the workers in reverse order and waits for each to exit.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.started = false

	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
}

type funcWorker struct {
	start func(ctx context.Context)
	stop  func()
}

// FromFuncs adapts a start/stop pair to [Worker].
func FromFuncs(start func(ctx context.Context), stop func()) Worker {
	return &funcWorker{start: start, stop: stop}
}

func (f *funcWorker) Start(ctx context.Context) { f.start(ctx) }

func (f *funcWorker) Stop() { f.stop() }
