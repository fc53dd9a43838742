package vyakta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const categorySelect = `SELECT id, name, slug, description, meta_description, post_count, created_at, updated_at FROM categories`

func scanCategory(row rowScanner) (Category, error) {
	var c Category
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.MetaDescription, &c.PostCount, &createdAt, &updatedAt); err != nil {
		return Category{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// ListCategories returns categories ordered by name. Unless includeEmpty is
// set, categories without published posts are left out.
func (s *Store) ListCategories(ctx context.Context, includeEmpty bool) ([]Category, error) {
	query := categorySelect
	if !includeEmpty {
		query += " WHERE post_count > 0"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	cats := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, &NotFoundError{Entity: "category", Key: id}
	}
	return c, err
}

// GetCategoryBySlug returns a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+" WHERE slug = ?", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, &NotFoundError{Entity: "category", Key: slug}
	}
	return c, err
}

// MissingCategories returns the ids in ids that do not exist.
func (s *Store) MissingCategories(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, anyArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// InsertCategory stores a new category.
func (s *Store) InsertCategory(ctx context.Context, c *Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, name, slug, description, meta_description, post_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		c.ID, c.Name, c.Slug, c.Description, c.MetaDescription, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	return conflictFromErr(err, "category")
}

// UpdateCategory rewrites the editable fields of a category.
func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ?, slug = ?, description = ?, meta_description = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Slug, c.Description, c.MetaDescription, toMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return conflictFromErr(err, "category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "category", Key: c.ID}
	}
	return nil
}

// DeleteCategory removes a category that no post references.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_categories WHERE category_id = ?`, id).Scan(&refs); err != nil {
			return err
		}
		if refs > 0 {
			return &ConflictError{Entity: "category", Field: "posts", Reason: "cannot delete category with existing posts"}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "category", Key: id}
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM category_recounts WHERE category_id = ?`, id)
		return err
	})
}

// CountCategories returns the number of categories.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

// RecountCategory sets post_count to the number of published posts filed
// under the category, read from the current post set.
func (s *Store) RecountCategory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE categories SET post_count = (
    SELECT COUNT(*) FROM post_categories pc JOIN posts p ON p.id = pc.post_id
    WHERE pc.category_id = ? AND p.status = ?
) WHERE id = ?`, id, string(StatusPublished), id)
	return err
}

// recountJob is a pending row of the category_recounts outbox.
type recountJob struct {
	CategoryID string
	Version    int64
	QueuedAt   time.Time
}

// enqueueRecounts records that the given categories need their post count
// refreshed. Re-queuing a pending category bumps its version so a recount
// already in flight does not clear the newer request.
func enqueueRecounts(ctx context.Context, tx *sql.Tx, ids []string, now time.Time) error {
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, `INSERT INTO category_recounts (category_id, version, queued_at) VALUES (?, 1, ?)
ON CONFLICT(category_id) DO UPDATE SET version = version + 1, queued_at = excluded.queued_at`, id, toMillis(now))
		if err != nil {
			return fmt.Errorf("queue recount %s: %w", id, err)
		}
	}
	return nil
}

// EnqueueRecounts queues recounts outside of a post write.
func (s *Store) EnqueueRecounts(ctx context.Context, ids []string, now time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return enqueueRecounts(ctx, tx, ids, now)
	})
}

// PendingRecounts returns up to limit queued recounts, oldest first.
func (s *Store) PendingRecounts(ctx context.Context, limit int) ([]recountJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category_id, version, queued_at FROM category_recounts ORDER BY queued_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []recountJob
	for rows.Next() {
		var j recountJob
		var queued int64
		if err := rows.Scan(&j.CategoryID, &j.Version, &queued); err != nil {
			return nil, err
		}
		j.QueuedAt = fromMillis(queued)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CompleteRecount removes a processed job unless it was re-queued meanwhile.
func (s *Store) CompleteRecount(ctx context.Context, j recountJob) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM category_recounts WHERE category_id = ? AND version = ?`, j.CategoryID, j.Version)
	return err
}

// AllCategoryIDs returns every category id.
func (s *Store) AllCategoryIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
