package vyakta

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ViewCounter applies post view increments in the background so reads
// never wait on a write. Increments queued faster than they can be stored
// are dropped with a warning.
type ViewCounter struct {
	store *Store
	log   *zap.Logger
	ch    chan string

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewViewCounter starts a counter with room for buffer pending increments.
func NewViewCounter(store *Store, log *zap.Logger, buffer int) *ViewCounter {
	if buffer <= 0 {
		buffer = 1024
	}
	v := &ViewCounter{
		store: store,
		log:   log,
		ch:    make(chan string, buffer),
		done:  make(chan struct{}),
	}
	go v.run()
	return v
}

// Record queues one view of the post with the given id.
func (v *ViewCounter) Record(postID string) {
	if v == nil {
		return
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return
	}
	select {
	case v.ch <- postID:
	default:
		v.log.Warn("view counter full, dropping view", zap.String("post", postID))
	}
}

// Close stops accepting views, stores everything queued and returns.
func (v *ViewCounter) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.ch)
	v.mu.Unlock()
	<-v.done
}

func (v *ViewCounter) run() {
	defer close(v.done)
	pending := make(map[string]int)
	for id := range v.ch {
		pending[id]++
		if len(v.ch) == 0 {
			v.flush(pending)
		}
	}
	v.flush(pending)
}

func (v *ViewCounter) flush(pending map[string]int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for id, n := range pending {
		if err := v.store.IncrementViews(ctx, id, n); err != nil {
			v.log.Warn("increment views", zap.String("post", id), zap.Int("count", n), zap.Error(err))
		}
		delete(pending, id)
	}
}
