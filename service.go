package vyakta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/parth-105/Vyakta/content"
	"github.com/parth-105/Vyakta/media"
	"github.com/parth-105/Vyakta/search"
	"github.com/parth-105/Vyakta/seo"
)

// Listing limits.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	recentPostLimit = 10
	trendingLimit   = 10
	minPasswordLen  = 8
)

// passwordCost is the bcrypt cost for new password hashes.
var passwordCost = 12

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service implements the blog operations on top of the Store. Index,
// Recounter, Views, Cache and Media are optional.
type Service struct {
	Store     *Store
	Index     *search.Index
	Recounter *Recounter
	Views     *ViewCounter
	Cache     *FeedCache
	Media     media.Host
	Site      seo.Site
	Log       *zap.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// authorize allows admins everything and editors only their own posts.
func authorize(actor User, p Post, action string) error {
	if actor.IsAdmin() || (actor.ID != "" && actor.ID == p.AuthorID) {
		return nil
	}
	return &AuthorizationError{Action: action}
}

func (s *Service) validatePost(ctx context.Context, p *Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	missing, err := s.Store.MissingCategories(ctx, p.CategoryIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return invalid("categories", "Unknown category: %s", missing[0])
	}
	return nil
}

// afterWrite runs the side effects of a post write that never fail it.
func (s *Service) afterWrite(p *Post, deleted bool) {
	s.Recounter.Notify()
	s.Cache.Invalidate()
	if s.Index == nil {
		return
	}
	var err error
	if deleted {
		err = s.Index.Delete(p.ID)
	} else {
		err = s.Index.Put(searchDocument(p))
	}
	if err != nil {
		s.logger().Warn("update search index", zap.String("post", p.ID), zap.Error(err))
	}
}

func searchDocument(p *Post) search.Document {
	return search.Document{ID: p.ID, Title: p.Title, Content: content.StripTags(p.Content), Tags: p.Tags}
}

// CreatePost validates and stores a new post authored by actor.
func (s *Service) CreatePost(ctx context.Context, actor User, in PostInput) (Post, error) {
	now := s.now()
	p := Post{
		ID:        uuid.NewString(),
		AuthorID:  actor.ID,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.apply(in, now)
	p.Prepare(now)
	if err := s.validatePost(ctx, &p); err != nil {
		return Post{}, err
	}
	if err := s.Store.InsertPost(ctx, &p); err != nil {
		return Post{}, err
	}
	s.afterWrite(&p, false)
	return s.Store.GetPost(ctx, p.Slug, false)
}

// UpdatePost applies the set fields of in to the post with the given slug.
func (s *Service) UpdatePost(ctx context.Context, actor User, slug string, in PostInput) (Post, error) {
	existing, err := s.Store.GetPost(ctx, slug, false)
	if err != nil {
		return Post{}, err
	}
	if err := authorize(actor, existing, "update this post"); err != nil {
		return Post{}, err
	}
	now := s.now()
	p := existing
	p.apply(in, now)
	p.UpdatedAt = now
	p.Prepare(now)
	if err := s.validatePost(ctx, &p); err != nil {
		return Post{}, err
	}
	if err := s.Store.UpdatePost(ctx, &p, existing.CategoryIDs); err != nil {
		return Post{}, err
	}
	s.afterWrite(&p, false)
	return s.Store.GetPost(ctx, p.Slug, false)
}

// DeletePost removes the post with the given slug.
func (s *Service) DeletePost(ctx context.Context, actor User, slug string) error {
	p, err := s.Store.GetPost(ctx, slug, false)
	if err != nil {
		return err
	}
	if err := authorize(actor, p, "delete this post"); err != nil {
		return err
	}
	if err := s.Store.DeletePost(ctx, &p, s.now()); err != nil {
		return err
	}
	s.afterWrite(&p, true)
	return nil
}

// PostDetail is a published post with its reader-facing metadata.
type PostDetail struct {
	Post
	TableOfContents []content.Heading `json:"tableOfContents"`
	SEO             seo.Meta          `json:"seo"`
	StructuredData  []json.RawMessage `json:"structuredData"`
	RelatedPosts    []Post            `json:"relatedPosts"`
}

// GetPublishedPost returns a published post and counts a view. The view is
// stored in the background; the returned post does not include it.
func (s *Service) GetPublishedPost(ctx context.Context, slug string) (PostDetail, error) {
	p, err := s.Store.GetPost(ctx, slug, true)
	if err != nil {
		return PostDetail{}, err
	}
	s.Views.Record(p.ID)

	d := PostDetail{Post: p, TableOfContents: []content.Heading{}}
	if html, err := content.Render(p.Content); err != nil {
		s.logger().Warn("render post", zap.String("post", p.ID), zap.Error(err))
	} else if toc, err := content.TableOfContents(html); err == nil {
		d.TableOfContents = toc
	}
	a := p.article()
	d.SEO = seo.PostMeta(s.Site, a)
	crumbs := []seo.Crumb{
		{Name: "Home", URL: s.Site.URL},
		{Name: "Blog", URL: seo.JoinURL(s.Site.URL, "blog")},
	}
	if len(p.Categories) > 0 {
		c := p.Categories[0]
		crumbs = append(crumbs, seo.Crumb{Name: c.Name, URL: seo.JoinURL(s.Site.URL, "blog", "category", c.Slug)})
	}
	crumbs = append(crumbs, seo.Crumb{Name: p.Title, URL: seo.JoinURL(s.Site.URL, "blog", p.Slug)})
	d.StructuredData = []json.RawMessage{
		json.RawMessage(seo.ArticleJSONLD(s.Site, a)),
		json.RawMessage(seo.BreadcrumbJSONLD(crumbs)),
	}
	d.RelatedPosts, err = s.related(ctx, p)
	if err != nil {
		return PostDetail{}, err
	}
	return d, nil
}

// related picks posts sharing a category or tag with p, newest first.
func (s *Service) related(ctx context.Context, p Post) ([]Post, error) {
	var candidates []Post
	var err error
	if s.Cache != nil {
		candidates, err = s.Cache.Posts(ctx)
	} else {
		candidates, _, err = s.Store.ListPosts(ctx, postFilter{Statuses: []Status{StatusPublished}, Sort: SortNewest})
	}
	if err != nil {
		return nil, err
	}
	return relatedPosts(p, candidates, relatedPostLimit), nil
}

// GetPost returns a post in any status.
func (s *Service) GetPost(ctx context.Context, slug string) (Post, error) {
	return s.Store.GetPost(ctx, slug, false)
}

func normalizePage(q *PostQuery) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

func paginate(page, limit, total int) Pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// filterFor turns a query into a store filter. An unknown category slug
// leaves the listing unfiltered by category.
func (s *Service) filterFor(ctx context.Context, q PostQuery) (postFilter, error) {
	f := postFilter{
		Tag:    q.Tag,
		Sort:   q.Sort,
		Offset: (q.Page - 1) * q.Limit,
		Limit:  q.Limit,
	}
	if q.Category != "" {
		c, err := s.Store.GetCategoryBySlug(ctx, q.Category)
		switch {
		case err == nil:
			f.CategoryID = c.ID
		case !IsNotFound(err):
			return f, err
		}
	}
	if text := strings.TrimSpace(q.Search); text != "" {
		if s.Index == nil {
			f.Search = text
		} else {
			ids, err := s.Index.Search(text)
			if err != nil {
				return f, err
			}
			f.IDs, f.ByIDs = ids, true
		}
	}
	return f, nil
}

// ListPosts returns one page of published posts without content.
func (s *Service) ListPosts(ctx context.Context, q PostQuery) (PostList, error) {
	normalizePage(&q)
	switch q.Sort {
	case SortNewest, SortOldest, SortPopular:
	default:
		q.Sort = SortNewest
	}
	f, err := s.filterFor(ctx, q)
	if err != nil {
		return PostList{}, err
	}
	f.Statuses = []Status{StatusPublished}
	posts, total, err := s.Store.ListPosts(ctx, f)
	if err != nil {
		return PostList{}, err
	}
	return PostList{Posts: posts, Pagination: paginate(q.Page, q.Limit, total)}, nil
}

// ListAllPosts returns one page of posts in any status, most recently
// updated first unless a sort is given.
func (s *Service) ListAllPosts(ctx context.Context, q PostQuery) (PostList, error) {
	normalizePage(&q)
	if q.Sort == "" {
		q.Sort = "updated"
	}
	f, err := s.filterFor(ctx, q)
	if err != nil {
		return PostList{}, err
	}
	if q.Status != "" {
		if !q.Status.Valid() {
			return PostList{}, invalid("status", "Status must be draft, published or trash")
		}
		f.Statuses = []Status{q.Status}
	}
	posts, total, err := s.Store.ListPosts(ctx, f)
	if err != nil {
		return PostList{}, err
	}
	return PostList{Posts: posts, Pagination: paginate(q.Page, q.Limit, total)}, nil
}

// TrendingPosts returns published posts flagged trending within the last
// TrendingWindow, most recently flagged first.
func (s *Service) TrendingPosts(ctx context.Context) ([]Post, error) {
	since := s.now().Add(-TrendingWindow)
	posts, _, err := s.Store.ListPosts(ctx, postFilter{
		Statuses:   []Status{StatusPublished},
		TrendingAt: &since,
		Sort:       "trending",
		Limit:      trendingLimit,
	})
	return posts, err
}

// ListCategories returns categories by name. Unless includeEmpty is set,
// only categories with published posts are returned.
func (s *Service) ListCategories(ctx context.Context, includeEmpty bool) ([]Category, error) {
	return s.Store.ListCategories(ctx, includeEmpty)
}

// CategoryDetail is a category with its landing page metadata.
type CategoryDetail struct {
	Category
	SEO seo.Meta `json:"seo"`
}

// GetCategory returns a category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (CategoryDetail, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}
	return CategoryDetail{
		Category: c,
		SEO:      seo.CategoryMeta(s.Site, c.Name, c.Slug, c.Description, c.MetaDescription),
	}, nil
}

func (c *Category) apply(in CategoryInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if c.Slug == "" {
		c.Slug = seo.Slugify(c.Name)
	}
	c.Description = strings.TrimSpace(in.Description)
	c.MetaDescription = strings.TrimSpace(in.MetaDescription)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	now := s.now()
	c := Category{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	c.apply(in)
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	if err := s.Store.InsertCategory(ctx, &c); err != nil {
		return Category{}, err
	}
	s.Cache.Invalidate()
	return c, nil
}

// UpdateCategory replaces the editable fields of a category.
func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (Category, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	c.apply(in)
	c.UpdatedAt = s.now()
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	if err := s.Store.UpdateCategory(ctx, &c); err != nil {
		return Category{}, err
	}
	s.Cache.Invalidate()
	return c, nil
}

// DeleteCategory removes a category that no post references.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.Store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate()
	return nil
}

// Dashboard gathers the admin dashboard figures concurrently.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalPosts, err = s.Store.CountPosts(ctx, "")
		return err
	})
	g.Go(func() (err error) {
		stats.PublishedPosts, err = s.Store.CountPosts(ctx, StatusPublished)
		return err
	})
	g.Go(func() (err error) {
		stats.DraftPosts, err = s.Store.CountPosts(ctx, StatusDraft)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalCategories, err = s.Store.CountCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalViews, err = s.Store.TotalViews(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentPosts, _, err = s.Store.ListPosts(ctx, postFilter{Sort: "updated", Limit: recentPostLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	return stats, nil
}

// SiteInfo is the public description of the site for page heads.
type SiteInfo struct {
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Description    string          `json:"description"`
	Author         string          `json:"author,omitempty"`
	StructuredData json.RawMessage `json:"structuredData"`
}

// SiteInfo returns the site identity with its WebSite JSON-LD.
func (s *Service) SiteInfo() SiteInfo {
	return SiteInfo{
		Name:           s.Site.Name,
		URL:            s.Site.URL,
		Description:    s.Site.Description,
		Author:         s.Site.Author,
		StructuredData: json.RawMessage(seo.WebsiteJSONLD(s.Site)),
	}
}

// ScoreReport previews the derived fields of an unsaved draft.
type ScoreReport struct {
	Score       int      `json:"score"`
	MaxScore    int      `json:"maxScore"`
	Slug        string   `json:"slug"`
	ReadingTime int      `json:"readingTime"`
	WordCount   int      `json:"wordCount"`
	Excerpt     string   `json:"excerpt"`
	Keywords    []string `json:"keywords"`
}

// ScorePreview derives slug, reading time, excerpt and SEO score for in
// without storing anything.
func (s *Service) ScorePreview(in PostInput) ScoreReport {
	now := s.now()
	var p Post
	p.apply(in, now)
	p.Prepare(now)
	return ScoreReport{
		Score:       p.SEOScore,
		MaxScore:    seo.MaxScore,
		Slug:        p.Slug,
		ReadingTime: p.ReadingTime,
		WordCount:   content.WordCount(p.Content),
		Excerpt:     p.Excerpt,
		Keywords:    seo.ExtractKeywords(content.StripTags(p.Content), 10),
	}
}

// Authenticate returns the user with the given email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.Store.GetUserByEmail(ctx, email)
	if IsNotFound(err) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateUser stores a new account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, name, email, password string, role Role) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case name == "":
		return User{}, invalid("name", "Name is required")
	case email == "":
		return User{}, invalid("email", "Email is required")
	case len(password) < minPasswordLen:
		return User{}, invalid("password", "Password must be at least %d characters", minPasswordLen)
	case role != RoleAdmin && role != RoleEditor:
		return User{}, invalid("role", "Role must be admin or editor")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, invalid("email", "Please enter a valid email")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.Store.InsertUser(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// EnsureAdmin creates an admin account when the store has no users yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	n, err := s.Store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 || email == "" || password == "" {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, "Admin", email, password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// UploadImage stores an image on the media host and records it.
func (s *Service) UploadImage(ctx context.Context, r io.Reader, opts media.UploadOptions) (Image, error) {
	if s.Media == nil {
		return Image{}, errors.New("no media host configured")
	}
	asset, err := s.Media.Upload(ctx, r, opts)
	if err != nil {
		return Image{}, err
	}
	img := Image{
		PublicID:   asset.PublicID,
		URL:        asset.URL,
		Width:      asset.Width,
		Height:     asset.Height,
		Format:     asset.Format,
		Bytes:      asset.Bytes,
		UploadedAt: asset.UploadedAt,
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = s.now()
	}
	if err := s.Store.SaveImage(ctx, img); err != nil {
		return Image{}, err
	}
	s.withSizes(&img)
	return img, nil
}

// ListImages returns uploaded images, newest first.
func (s *Service) ListImages(ctx context.Context) ([]Image, error) {
	images, err := s.Store.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	for i := range images {
		s.withSizes(&images[i])
	}
	return images, nil
}

func (s *Service) withSizes(img *Image) {
	if r, ok := s.Media.(media.Resizer); ok {
		img.Sizes = r.Sizes(img.PublicID)
	}
}

// DeleteImage removes an image from the media host and the store.
func (s *Service) DeleteImage(ctx context.Context, publicID string) error {
	if s.Media == nil {
		return errors.New("no media host configured")
	}
	if err := s.Media.Delete(ctx, publicID); err != nil {
		return err
	}
	return s.Store.DeleteImage(ctx, publicID)
}

// Rescore recomputes the derived fields of every post and returns how many
// changed.
func (s *Service) Rescore(ctx context.Context) (int, error) {
	posts, _, err := s.Store.ListPosts(ctx, postFilter{WithContent: true})
	if err != nil {
		return 0, err
	}
	now := s.now()
	changed := 0
	for i := range posts {
		p := &posts[i]
		before := *p
		p.Prepare(now)
		if p.SEOScore == before.SEOScore && p.ReadingTime == before.ReadingTime &&
			p.Excerpt == before.Excerpt && p.Slug == before.Slug &&
			equalTimes(p.PublishedAt, before.PublishedAt) {
			continue
		}
		if err := s.Store.UpdateDerived(ctx, p); err != nil {
			return changed, fmt.Errorf("rescore %s: %w", p.Slug, err)
		}
		changed++
	}
	if changed > 0 {
		s.Cache.Invalidate()
	}
	return changed, nil
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Reindex rebuilds the search index from the store and returns the number
// of indexed posts.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, errors.New("no search index configured")
	}
	posts, _, err := s.Store.ListPosts(ctx, postFilter{WithContent: true})
	if err != nil {
		return 0, err
	}
	docs := make([]search.Document, len(posts))
	for i := range posts {
		docs[i] = searchDocument(&posts[i])
	}
	if err := s.Index.Rebuild(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// RecountAll queues every category for a recount and drains the queue.
func (s *Service) RecountAll(ctx context.Context) error {
	ids, err := s.Store.AllCategoryIDs(ctx)
	if err != nil {
		return err
	}
	if err := s.Store.EnqueueRecounts(ctx, ids, s.now()); err != nil {
		return err
	}
	if s.Recounter == nil {
		return nil
	}
	if err := s.Recounter.Drain(ctx); err != nil {
		return err
	}
	s.Cache.Invalidate()
	return nil
}
