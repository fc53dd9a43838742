package vyakta

import (
	"context"
	"fmt"
)

// SaveImage records the metadata of an uploaded image.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO images (public_id, url, width, height, format, bytes, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.PublicID, img.URL, img.Width, img.Height, img.Format, img.Bytes, toMillis(img.UploadedAt))
	return err
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT public_id, url, width, height, format, bytes, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	images := []Image{}
	for rows.Next() {
		var img Image
		var uploaded int64
		if err := rows.Scan(&img.PublicID, &img.URL, &img.Width, &img.Height, &img.Format, &img.Bytes, &uploaded); err != nil {
			return nil, err
		}
		img.UploadedAt = fromMillis(uploaded)
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteImage removes image metadata by public id.
func (s *Store) DeleteImage(ctx context.Context, publicID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE public_id = ?`, publicID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "image", Key: publicID}
	}
	return nil
}
