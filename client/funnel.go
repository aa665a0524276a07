package client

import (
	"context"
	"log/slog"
	"sync"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// DefaultFunnelDepth is the queue length of each remote AET.
const DefaultFunnelDepth = 32

type funnelRequest struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error // nil when nobody waits
}

// Funnel runs the requests aimed at one remote AET one after the other on
// a dedicated goroutine, so that callers sharing a modality never share
// an association. Each AET has a bounded queue.
type Funnel struct {
	mu     sync.RWMutex
	qmu    sync.Mutex
	queues map[string]chan funnelRequest
	depth  int
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewFunnel returns a funnel whose queues hold depth pending requests.
func NewFunnel(depth int, logger *slog.Logger) *Funnel {
	if depth <= 0 {
		depth = DefaultFunnelDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Funnel{queues: make(map[string]chan funnelRequest), depth: depth, logger: logger}
}

func (f *Funnel) queue(aet string) chan funnelRequest {
	f.qmu.Lock()
	defer f.qmu.Unlock()
	q, ok := f.queues[aet]
	if !ok {
		q = make(chan funnelRequest, f.depth)
		f.queues[aet] = q
		f.wg.Add(1)
		go f.run(aet, q)
	}
	return q
}

func (f *Funnel) run(aet string, q chan funnelRequest) {
	defer f.wg.Done()
	for req := range q {
		err := req.ctx.Err()
		if err == nil {
			err = req.fn(req.ctx)
		}
		if req.done != nil {
			req.done <- err
		} else if err != nil {
			f.logger.Error("Queued DICOM request failed", "remote_aet", aet, "error", err)
		}
	}
	f.logger.Debug("Funnel drained", "remote_aet", aet)
}

// Submit queues fn behind the other requests to aet and waits for its
// result. It blocks while the queue is full.
func (f *Funnel) Submit(ctx context.Context, aet string, fn func(context.Context) error) error {
	done := make(chan error, 1)
	if err := f.enqueue(ctx, aet, funnelRequest{ctx: ctx, fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go queues fn without waiting. Failures are logged.
func (f *Funnel) Go(ctx context.Context, aet string, fn func(context.Context) error) error {
	return f.enqueue(ctx, aet, funnelRequest{ctx: ctx, fn: fn})
}

func (f *Funnel) enqueue(ctx context.Context, aet string, req funnelRequest) error {
	// Senders hold the read lock so that Close cannot close a queue
	// under a blocked sender.
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return dcmerr.New(dcmerr.KindBadSequenceOfCalls, "funnel is closed")
	}
	select {
	case f.queue(aet) <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting requests and waits for the queued ones.
func (f *Funnel) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		f.qmu.Lock()
		for _, q := range f.queues {
			close(q)
		}
		f.qmu.Unlock()
	}
	f.mu.Unlock()
	f.wg.Wait()
}
