package vyakta

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parth-105/Vyakta/media"
	"github.com/parth-105/Vyakta/search"
)

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go Programming")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)

	p, err := svc.CreatePost(ctx, author, validInput("Structuring Go Services", cat.ID))
	require.NoError(t, err)

	assert.Equal(t, "structuring-go-services", p.Slug)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, author.ID, p.AuthorID)
	require.NotNil(t, p.Author)
	assert.Equal(t, author.Name, p.Author.Name)
	require.Len(t, p.Categories, 1)
	assert.Equal(t, "go-programming", p.Categories[0].Slug)
	assert.Equal(t, testEpoch, p.CreatedAt)
}

func TestCreatePostRejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)
	author := mustUser(t, svc, "editor@example.com", RoleEditor)

	_, err := svc.CreatePost(context.Background(), author, validInput("Title", "missing"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "categories", ve.Field)
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)

	_, err := svc.CreatePost(ctx, author, validInput("Same Title", cat.ID))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, author, validInput("Same Title", cat.ID))

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "slug", ce.Field)
}

func TestUpdatePostIsPartial(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	created, err := svc.CreatePost(ctx, author, validInput("Original Title", cat.ID))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	updated, err := svc.UpdatePost(ctx, author, created.Slug, PostInput{
		MetaDescription: strPtr(testMetaAlt),
		Status:          statusPtr(StatusPublished),
	})
	require.NoError(t, err)

	assert.Equal(t, "Original Title", updated.Title)
	assert.Equal(t, created.Slug, updated.Slug)
	assert.Equal(t, testMetaAlt, updated.MetaDescription)
	assert.Equal(t, created.Content, updated.Content)
	assert.Equal(t, created.Excerpt, updated.Excerpt)
	require.NotNil(t, updated.PublishedAt)
	assert.Equal(t, clock.Now(), *updated.PublishedAt)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdatePostValidatesMergedResult(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	created, err := svc.CreatePost(ctx, author, validInput("Original Title", cat.ID))
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, author, created.Slug, PostInput{Content: strPtr("too short")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "content", ve.Field)
}

func TestPostAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	owner := mustUser(t, svc, "owner@example.com", RoleEditor)
	other := mustUser(t, svc, "other@example.com", RoleEditor)
	admin := mustUser(t, svc, "admin@example.com", RoleAdmin)
	p, err := svc.CreatePost(ctx, owner, validInput("Owned Post", cat.ID))
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, other, p.Slug, PostInput{Title: strPtr("Hijacked")})
	var ae *AuthorizationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "unauthorized to update this post", ae.Error())

	require.ErrorAs(t, svc.DeletePost(ctx, other, p.Slug), &ae)

	_, err = svc.UpdatePost(ctx, admin, p.Slug, PostInput{Title: strPtr("Edited by admin")})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, owner, p.Slug))

	_, err = svc.GetPost(ctx, p.Slug)
	assert.True(t, IsNotFound(err))
}

func TestCategoryCountsFollowPostWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	goCat := mustCategory(t, svc, "Go")
	dbCat := mustCategory(t, svc, "Databases")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)

	count := func(id string) int {
		t.Helper()
		require.NoError(t, svc.Recounter.Drain(ctx))
		c, err := svc.Store.GetCategory(ctx, id)
		require.NoError(t, err)
		return c.PostCount
	}

	in := validInput("Counted Post", goCat.ID)
	in.Status = statusPtr(StatusPublished)
	p, err := svc.CreatePost(ctx, author, in)
	require.NoError(t, err)
	assert.Equal(t, 1, count(goCat.ID))

	_, err = svc.UpdatePost(ctx, author, p.Slug, PostInput{Categories: []string{dbCat.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, count(goCat.ID), "the old category is recounted")
	assert.Equal(t, 1, count(dbCat.ID))

	_, err = svc.UpdatePost(ctx, author, p.Slug, PostInput{Status: statusPtr(StatusDraft)})
	require.NoError(t, err)
	assert.Equal(t, 0, count(dbCat.ID), "drafts are not counted")

	cats, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, cats)
	cats, err = svc.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestListPostsQuery(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	goCat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	for _, title := range []string{"First Post", "Second Post", "Third Post"} {
		in := validInput(title, goCat.ID)
		in.Status = statusPtr(StatusPublished)
		_, err := svc.CreatePost(ctx, author, in)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	_, err := svc.CreatePost(ctx, author, validInput("Hidden Draft", goCat.ID))
	require.NoError(t, err)

	list, err := svc.ListPosts(ctx, PostQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2, HasNext: true, HasPrev: false}, list.Pagination)
	require.Len(t, list.Posts, 2)
	assert.Equal(t, "third-post", list.Posts[0].Slug)

	list, err = svc.ListPosts(ctx, PostQuery{Page: 2, Limit: 500, Sort: SortOldest})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, list.Pagination.Limit)
	assert.Empty(t, list.Posts)

	list, err = svc.ListPosts(ctx, PostQuery{Category: "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Pagination.Total, "an unknown category leaves the listing unfiltered")

	all, err := svc.ListAllPosts(ctx, PostQuery{Status: StatusDraft})
	require.NoError(t, err)
	require.Len(t, all.Posts, 1)
	assert.Equal(t, "hidden-draft", all.Posts[0].Slug)

	_, err = svc.ListAllPosts(ctx, PostQuery{Status: "archived"})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListPostsSearchIndex(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	idx, err := search.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	svc.Index = idx

	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	in := validInput("Kubernetes Operators Explained", cat.ID)
	in.Status = statusPtr(StatusPublished)
	_, err = svc.CreatePost(ctx, author, in)
	require.NoError(t, err)
	in = validInput("Profiling Allocations", cat.ID)
	in.Status = statusPtr(StatusPublished)
	_, err = svc.CreatePost(ctx, author, in)
	require.NoError(t, err)

	list, err := svc.ListPosts(ctx, PostQuery{Search: "kubernetes"})
	require.NoError(t, err)
	require.Len(t, list.Posts, 1)
	assert.Equal(t, "kubernetes-operators-explained", list.Posts[0].Slug)

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, svc.DeletePost(ctx, author, "kubernetes-operators-explained"))
	list, err = svc.ListPosts(ctx, PostQuery{Search: "kubernetes"})
	require.NoError(t, err)
	assert.Empty(t, list.Posts)
}

func TestTrendingPosts(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)

	create := func(title string) {
		in := validInput(title, cat.ID)
		in.Status = statusPtr(StatusPublished)
		in.Trending = &TrendingInput{IsTrending: true}
		_, err := svc.CreatePost(ctx, author, in)
		require.NoError(t, err)
	}
	create("Stale Trend")
	clock.Advance(2 * time.Hour)
	create("Fresh Trend")
	clock.Advance(23 * time.Hour)

	posts, err := svc.TrendingPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1, "a flag raised 25h ago has expired")
	assert.Equal(t, "fresh-trend", posts[0].Slug)
}

func TestGetPublishedPost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	svc.Site.Name = "Vyakta"
	svc.Site.URL = "https://blog.example.com"
	svc.Views = NewViewCounter(svc.Store, svc.logger(), 16)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	p, err := svc.CreatePost(ctx, author, validInput("Reading Time Matters", cat.ID))
	require.NoError(t, err)

	_, err = svc.GetPublishedPost(ctx, p.Slug)
	assert.True(t, IsNotFound(err), "drafts are not public")

	_, err = svc.UpdatePost(ctx, author, p.Slug, PostInput{Status: statusPtr(StatusPublished)})
	require.NoError(t, err)

	d, err := svc.GetPublishedPost(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Reading Time Matters | Vyakta", d.SEO.Title)
	assert.Equal(t, "https://blog.example.com/blog/reading-time-matters", d.SEO.CanonicalURL)
	require.Len(t, d.TableOfContents, 2)
	assert.Equal(t, "Getting started", d.TableOfContents[0].Text)
	assert.Len(t, d.StructuredData, 2)
	assert.Empty(t, d.RelatedPosts)

	other := mustCategory(t, svc, "Databases")
	sibling := validInput("Tag Sibling", other.ID)
	sibling.Status = statusPtr(StatusPublished)
	_, err = svc.CreatePost(ctx, author, sibling)
	require.NoError(t, err)
	stranger := validInput("Unrelated Notes", other.ID)
	stranger.Tags = []string{"sql"}
	stranger.Status = statusPtr(StatusPublished)
	_, err = svc.CreatePost(ctx, author, stranger)
	require.NoError(t, err)

	d, err = svc.GetPublishedPost(ctx, p.Slug)
	require.NoError(t, err)
	require.Len(t, d.RelatedPosts, 1)
	assert.Equal(t, "tag-sibling", d.RelatedPosts[0].Slug)

	svc.Views.Close()
	got, err := svc.GetPost(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: "  Web Development "})
	require.NoError(t, err)
	assert.Equal(t, "Web Development", c.Name)
	assert.Equal(t, "web-development", c.Slug)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Web Development"})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: ""})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	updated, err := svc.UpdateCategory(ctx, c.ID, CategoryInput{Name: "Web", Slug: "web", Description: "Frontend and backend"})
	require.NoError(t, err)
	assert.Equal(t, "web", updated.Slug)

	detail, err := svc.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frontend and backend", detail.Description)
	assert.Equal(t, "Web", detail.SEO.Keywords)

	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	_, err = svc.CreatePost(ctx, author, validInput("Uses Web", c.ID))
	require.NoError(t, err)
	require.ErrorAs(t, svc.DeleteCategory(ctx, c.ID), &ce)

	require.NoError(t, svc.DeletePost(ctx, author, "uses-web"))
	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.GetCategory(ctx, c.ID)
	assert.True(t, IsNotFound(err))
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	in := validInput("Published One", cat.ID)
	in.Status = statusPtr(StatusPublished)
	p, err := svc.CreatePost(ctx, author, in)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, author, validInput("Draft One", cat.ID))
	require.NoError(t, err)
	require.NoError(t, svc.Store.IncrementViews(ctx, p.ID, 7))

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPosts)
	assert.Equal(t, 1, stats.PublishedPosts)
	assert.Equal(t, 1, stats.DraftPosts)
	assert.Equal(t, 1, stats.TotalCategories)
	assert.Equal(t, 7, stats.TotalViews)
	assert.Len(t, stats.RecentPosts, 2)
}

func TestScorePreview(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput("Structuring Go Services", "cat-1")
	r := svc.ScorePreview(in)

	assert.Equal(t, "structuring-go-services", r.Slug)
	assert.Equal(t, 2, r.ReadingTime)
	assert.Equal(t, 309, r.WordCount)
	assert.Equal(t, 100, r.MaxScore)
	assert.Greater(t, r.Score, 0)
	assert.Contains(t, r.Keywords, "services")
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.EnsureAdmin(ctx, "root@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureAdmin(ctx, "other@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, created, "bootstrap only runs on an empty store")

	u, err := svc.Authenticate(ctx, "ROOT@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = svc.Authenticate(ctx, "root@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.CreateUser(ctx, "Short", "short@example.com", "short", RoleEditor)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	_, err = svc.CreateUser(ctx, "Bad", "not-an-email", "long enough", RoleEditor)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

type memoryHost struct {
	assets  map[string]media.Asset
	deleted []string
}

func (h *memoryHost) Upload(ctx context.Context, r io.Reader, opts media.UploadOptions) (media.Asset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return media.Asset{}, err
	}
	id := "blog-images/" + opts.Filename
	a := media.Asset{PublicID: id, URL: "https://cdn.example.com/" + id, Bytes: len(b), Format: "png"}
	if h.assets == nil {
		h.assets = map[string]media.Asset{}
	}
	h.assets[id] = a
	return a, nil
}

func (h *memoryHost) Delete(ctx context.Context, publicID string) error {
	if _, ok := h.assets[publicID]; !ok {
		return errors.New("not found")
	}
	delete(h.assets, publicID)
	h.deleted = append(h.deleted, publicID)
	return nil
}

func TestUploadAndDeleteImage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	host := &memoryHost{}
	svc.Media = host

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	img, err := svc.UploadImage(ctx, &buf, media.UploadOptions{Filename: "cover"})
	require.NoError(t, err)
	assert.Equal(t, "blog-images/cover", img.PublicID)
	assert.Equal(t, testEpoch, img.UploadedAt)

	images, err := svc.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)

	require.NoError(t, svc.DeleteImage(ctx, img.PublicID))
	assert.Equal(t, []string{"blog-images/cover"}, host.deleted)
	images, err = svc.ListImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, images)
}

type sizedHost struct {
	memoryHost
}

func (h *sizedHost) Sizes(publicID string) map[string]string {
	return map[string]string{"thumbnail": "https://cdn.example.com/c_thumb/" + publicID}
}

func TestImageSizesFromResizingHost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	svc.Media = &sizedHost{}

	img, err := svc.UploadImage(ctx, strings.NewReader("png"), media.UploadOptions{Filename: "cover"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/c_thumb/blog-images/cover", img.Sizes["thumbnail"])

	images, err := svc.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, img.Sizes, images[0].Sizes)

	svc.Media = &memoryHost{}
	images, err = svc.ListImages(ctx)
	require.NoError(t, err)
	assert.Nil(t, images[0].Sizes)
}

func TestRescoreAndRecountAll(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	cat := mustCategory(t, svc, "Go")
	author := mustUser(t, svc, "editor@example.com", RoleEditor)
	in := validInput("Needs Rescore", cat.ID)
	in.Status = statusPtr(StatusPublished)
	p, err := svc.CreatePost(ctx, author, in)
	require.NoError(t, err)

	_, err = svc.Store.db.ExecContext(ctx, `UPDATE posts SET seo_score = 0, reading_time = 0 WHERE id = ?`, p.ID)
	require.NoError(t, err)
	_, err = svc.Store.db.ExecContext(ctx, `UPDATE categories SET post_count = 42; DELETE FROM category_recounts`)
	require.NoError(t, err)

	n, err := svc.Rescore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := svc.GetPost(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.SEOScore, got.SEOScore)
	assert.Equal(t, 2, got.ReadingTime)

	n, err = svc.Rescore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a second pass changes nothing")

	require.NoError(t, svc.RecountAll(ctx))
	c, err := svc.Store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.PostCount)
}
