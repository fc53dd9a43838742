package vyakta

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const postSelect = `SELECT p.id, p.title, p.slug, p.meta_description, %s, p.excerpt,
    p.image_url, p.image_alt, p.image_width, p.image_height,
    p.author_id, COALESCE(u.name, ''), COALESCE(u.avatar, ''), COALESCE(u.bio, ''),
    p.tags, p.status, p.published_at, p.reading_time, p.views, p.seo_score,
    p.canonical_url, p.focus_keyphrase, p.is_trending, p.trending_at,
    p.created_at, p.updated_at
FROM posts p LEFT JOIN users u ON u.id = p.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var (
		p                       Post
		imgURL, imgAlt          string
		imgW, imgH              int
		authorName, avatar, bio string
		tags, status            string
		publishedAt, trendingAt sql.NullInt64
		isTrending              int
		createdAt, updatedAt    int64
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.MetaDescription, &p.Content, &p.Excerpt,
		&imgURL, &imgAlt, &imgW, &imgH,
		&p.AuthorID, &authorName, &avatar, &bio,
		&tags, &status, &publishedAt, &p.ReadingTime, &p.Views, &p.SEOScore,
		&p.CanonicalURL, &p.FocusKeyphrase, &isTrending, &trendingAt,
		&createdAt, &updatedAt)
	if err != nil {
		return Post{}, err
	}
	if imgURL != "" {
		p.FeaturedImage = &FeaturedImage{URL: imgURL, Alt: imgAlt, Width: imgW, Height: imgH}
	}
	if authorName != "" {
		p.Author = &AuthorRef{ID: p.AuthorID, Name: authorName, Avatar: avatar, Bio: bio}
	}
	p.Tags = ParseTags(tags)
	p.Status = Status(status)
	p.PublishedAt = timePtr(publishedAt)
	p.Trending = Trending{IsTrending: isTrending == 1, TrendingAt: timePtr(trendingAt)}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.Categories = []CategoryRef{}
	return p, nil
}

// postFilter selects posts for a listing.
type postFilter struct {
	Statuses    []Status
	CategoryID  string
	Tag         string
	Search      string // substring match, used when no search index is configured
	IDs         []string
	ByIDs       bool // restrict to IDs even when empty
	TrendingAt  *time.Time
	Sort        string
	Offset      int
	Limit       int
	WithContent bool
}

func (f postFilter) where() (string, []any) {
	var conds []string
	var args []any
	if len(f.Statuses) > 0 {
		conds = append(conds, "p.status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.CategoryID != "" {
		conds = append(conds, "p.id IN (SELECT post_id FROM post_categories WHERE category_id = ?)")
		args = append(args, f.CategoryID)
	}
	if f.Tag != "" {
		conds = append(conds, "instr(p.tags, ',' || ? || ',') > 0")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Tag)))
	}
	if f.Search != "" {
		conds = append(conds, `(p.title LIKE ? ESCAPE '\' OR p.content LIKE ? ESCAPE '\' OR p.tags LIKE ? ESCAPE '\')`)
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		args = append(args, like, like, like)
	}
	if f.ByIDs {
		conds = append(conds, "p.id IN (SELECT value FROM json_each(?))")
		args = append(args, idList(f.IDs))
	}
	if f.TrendingAt != nil {
		conds = append(conds, "p.is_trending = 1 AND p.trending_at >= ?")
		args = append(args, toMillis(*f.TrendingAt))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f postFilter) orderBy() string {
	switch f.Sort {
	case SortOldest:
		return " ORDER BY p.published_at ASC, p.created_at ASC"
	case SortPopular:
		return " ORDER BY p.views DESC, p.published_at DESC"
	case "trending":
		return " ORDER BY p.trending_at DESC"
	case "updated":
		return " ORDER BY p.updated_at DESC"
	default:
		return " ORDER BY p.published_at DESC, p.created_at DESC"
	}
}

// ListPosts returns the posts matching f and the total number of matches
// ignoring Offset and Limit.
func (s *Store) ListPosts(ctx context.Context, f postFilter) ([]Post, int, error) {
	if f.ByIDs && len(f.IDs) == 0 {
		return []Post{}, 0, nil
	}
	where, args := f.where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	contentCol := "''"
	if f.WithContent {
		contentCol = "p.content"
	}
	query := fmt.Sprintf(postSelect, contentCol) + where + f.orderBy()
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	posts, err := s.queryPosts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachCategories(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachCategories fills CategoryIDs and Categories for each post.
func (s *Store) attachCategories(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*Post, len(posts))
	ids := make([]string, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
		ids[i] = posts[i].ID
	}
	rows, err := s.db.QueryContext(ctx, `SELECT pc.post_id, c.id, c.name, c.slug
FROM post_categories pc JOIN categories c ON c.id = pc.category_id
WHERE pc.post_id IN (SELECT value FROM json_each(?)) ORDER BY c.name`, idList(ids))
	if err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var ref CategoryRef
		if err := rows.Scan(&postID, &ref.ID, &ref.Name, &ref.Slug); err != nil {
			return err
		}
		p := byID[postID]
		p.CategoryIDs = append(p.CategoryIDs, ref.ID)
		p.Categories = append(p.Categories, ref)
	}
	return rows.Err()
}

// GetPost returns a post by slug with content. When publishedOnly is set,
// drafts and trashed posts are reported as not found.
func (s *Store) GetPost(ctx context.Context, slug string, publishedOnly bool) (Post, error) {
	query := fmt.Sprintf(postSelect, "p.content") + " WHERE p.slug = ?"
	args := []any{slug}
	if publishedOnly {
		query += " AND p.status = ?"
		args = append(args, string(StatusPublished))
	}
	posts, err := s.queryPosts(ctx, query, args...)
	if err != nil {
		return Post{}, err
	}
	if len(posts) == 0 {
		return Post{}, &NotFoundError{Entity: "post", Key: slug}
	}
	return posts[0], nil
}

// InsertPost stores a new post and queues a recount of its categories.
func (s *Store) InsertPost(ctx context.Context, p *Post) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO posts (id, slug, title, meta_description, content, excerpt,
    image_url, image_alt, image_width, image_height, author_id, tags, status, published_at,
    reading_time, views, seo_score, canonical_url, focus_keyphrase, is_trending, trending_at,
    created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append([]any{p.ID}, p.columnValues()...)...)
		if err != nil {
			return conflictFromErr(err, "post")
		}
		if err := setPostCategories(ctx, tx, p.ID, p.CategoryIDs); err != nil {
			return err
		}
		return enqueueRecounts(ctx, tx, p.CategoryIDs, p.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// UpdatePost rewrites a post and queues a recount of every category it
// was or is now filed under. Views are left alone; only IncrementViews
// writes them.
func (s *Store) UpdatePost(ctx context.Context, p *Post, previousCategories []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET slug = ?, title = ?, meta_description = ?,
    content = ?, excerpt = ?, image_url = ?, image_alt = ?, image_width = ?, image_height = ?,
    author_id = ?, tags = ?, status = ?, published_at = ?, reading_time = ?,
    seo_score = ?, canonical_url = ?, focus_keyphrase = ?, is_trending = ?, trending_at = ?,
    created_at = ?, updated_at = ?
WHERE id = ?`, append(p.updateValues(), p.ID)...)
		if err != nil {
			return conflictFromErr(err, "post")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "post", Key: p.Slug}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, p.ID); err != nil {
			return err
		}
		if err := setPostCategories(ctx, tx, p.ID, p.CategoryIDs); err != nil {
			return err
		}
		return enqueueRecounts(ctx, tx, union(previousCategories, p.CategoryIDs), p.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeletePost removes a post and queues a recount of its categories.
func (s *Store) DeletePost(ctx context.Context, p *Post, now time.Time) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, p.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, p.ID); err != nil {
			return err
		}
		return enqueueRecounts(ctx, tx, p.CategoryIDs, now)
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// IncrementViews adds n to a post's view counter.
func (s *Store) IncrementViews(ctx context.Context, id string, n int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET views = views + ? WHERE id = ?`, n, id)
	return err
}

// UpdateDerived stores recomputed derived fields without touching
// updated_at.
func (s *Store) UpdateDerived(ctx context.Context, p *Post) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET slug = ?, excerpt = ?, reading_time = ?,
    published_at = ?, seo_score = ? WHERE id = ?`,
		p.Slug, p.Excerpt, p.ReadingTime, nullMillis(p.PublishedAt), p.SEOScore, p.ID)
	return conflictFromErr(err, "post")
}

// CountPosts counts posts, optionally restricted to one status.
func (s *Store) CountPosts(ctx context.Context, status Status) (int, error) {
	var n int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE status = ?`, string(status)).Scan(&n)
	}
	return n, err
}

// TotalViews sums views across all posts.
func (s *Store) TotalViews(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(views), 0) FROM posts`).Scan(&n)
	return n, err
}

func (p *Post) columnValues() []any {
	head, tail := p.splitColumns()
	return append(append(head, p.Views), tail...)
}

// updateValues is columnValues without views.
func (p *Post) updateValues() []any {
	head, tail := p.splitColumns()
	return append(head, tail...)
}

// splitColumns returns the post columns before and after views.
func (p *Post) splitColumns() (head, tail []any) {
	var img FeaturedImage
	if p.FeaturedImage != nil {
		img = *p.FeaturedImage
	}
	head = []any{
		p.Slug, p.Title, p.MetaDescription, p.Content, p.Excerpt,
		img.URL, img.Alt, img.Width, img.Height,
		p.AuthorID, FormatTags(p.Tags), string(p.Status), nullMillis(p.PublishedAt),
		p.ReadingTime,
	}
	tail = []any{
		p.SEOScore, p.CanonicalURL, p.FocusKeyphrase,
		boolInt(p.Trending.IsTrending), nullMillis(p.Trending.TrendingAt),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	}
	return head, tail
}

func setPostCategories(ctx context.Context, tx *sql.Tx, postID string, categoryIDs []string) error {
	for _, id := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)`, postID, id); err != nil {
			return err
		}
	}
	return nil
}

// idList encodes ids as a JSON array for json_each, which has no bound
// parameter limit.
func idList(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func union(a, b []string) []string {
	return dedupe(append(append([]string{}, a...), b...), false)
}
