package vyakta

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	recountBatch       = 100
	recountConcurrency = 4
)

// Recounter drains the category_recounts outbox, refreshing each queued
// category's post count from the current post set. Post writes only queue
// work; a failed recount is logged and retried on the next pass, leaving
// the count stale until then.
type Recounter struct {
	store    *Store
	log      *zap.Logger
	interval time.Duration
	wake     chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecounter returns a stopped Recounter that polls every interval.
func NewRecounter(store *Store, log *zap.Logger, interval time.Duration) *Recounter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Recounter{
		store:    store,
		log:      log,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Start runs the drain loop in the background until Stop is called.
func (r *Recounter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

// Stop ends the drain loop and waits for it to exit.
func (r *Recounter) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Notify asks the loop to drain now instead of waiting for the next tick.
func (r *Recounter) Notify() {
	if r == nil {
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recounter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.log.Debug("recount pass incomplete", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-ticker.C:
		}
	}
}

// Drain processes queued recounts until the outbox is empty or a pass
// fails. Jobs re-queued while being processed stay in the outbox.
func (r *Recounter) Drain(ctx context.Context) error {
	for {
		jobs, err := r.store.PendingRecounts(ctx, recountBatch)
		if err != nil {
			r.log.Warn("load pending recounts", zap.Error(err))
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		var g errgroup.Group
		g.SetLimit(recountConcurrency)
		for _, job := range jobs {
			g.Go(func() error {
				if err := r.store.RecountCategory(ctx, job.CategoryID); err != nil {
					r.log.Warn("recount category", zap.String("category", job.CategoryID), zap.Error(err))
					return err
				}
				if err := r.store.CompleteRecount(ctx, job); err != nil {
					r.log.Warn("complete recount", zap.String("category", job.CategoryID), zap.Error(err))
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
}
