package vyakta

import (
	"context"
	"sync"
	"time"
)

// FeedCache is an in-memory cache of the published posts and non-empty
// categories behind the RSS feed and sitemap, refreshed after ttl or on
// Invalidate.
type FeedCache struct {
	mu         sync.RWMutex
	posts      []Post
	categories []Category
	fetched    time.Time
	ttl        time.Duration
	store      *Store
}

// NewFeedCache creates a FeedCache backed by the given Store.
func NewFeedCache(s *Store, ttl time.Duration) *FeedCache {
	return &FeedCache{store: s, ttl: ttl}
}

func (c *FeedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.mu.Unlock()
}

func (c *FeedCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, _, err := c.store.ListPosts(ctx, postFilter{Statuses: []Status{StatusPublished}, Sort: SortNewest})
	if err != nil {
		return err
	}
	cats, err := c.store.ListCategories(ctx, false)
	if err != nil {
		return err
	}
	c.posts = posts
	c.categories = cats
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached values after making sure the cache is fresh.
// It tries a read lock first and only takes the write lock to reload.
func (c *FeedCache) ensureLoaded(ctx context.Context) ([]Post, []Category, error) {
	c.mu.RLock()
	if c.valid() {
		posts, cats := c.posts, c.categories
		c.mu.RUnlock()
		return posts, cats, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.categories, nil
}

// Posts returns published posts, newest first, without content.
func (c *FeedCache) Posts(ctx context.Context) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// Categories returns categories that have published posts.
func (c *FeedCache) Categories(ctx context.Context) ([]Category, error) {
	_, cats, err := c.ensureLoaded(ctx)
	return cats, err
}
