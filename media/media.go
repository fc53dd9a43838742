// Package media uploads post images to an image host and builds delivery
// URLs for them.
package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/parth-105/Vyakta/seo"
)

// MaxUploadSize is the largest accepted image, in bytes.
const MaxUploadSize = 10 << 20

// DefaultFolder is used when an upload names no folder.
const DefaultFolder = "blog-images"

// ErrUnsupportedType is returned for files that are not an accepted image type.
var ErrUnsupportedType = errors.New("invalid file type, only image files are allowed (JPEG, PNG, WebP, GIF, SVG, BMP, TIFF, AVIF)")

// ErrTooLarge is returned for files over MaxUploadSize.
var ErrTooLarge = errors.New("file size too large, maximum size is 10MB")

// ErrInvalidImage is returned when the uploaded bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// ErrInvalidPublicID is returned for public ids that do not name a stored image.
var ErrInvalidPublicID = errors.New("invalid image id")

var allowedTypes = map[string]struct{}{
	"image/jpeg":    {},
	"image/jpg":     {},
	"image/png":     {},
	"image/webp":    {},
	"image/gif":     {},
	"image/svg+xml": {},
	"image/bmp":     {},
	"image/tiff":    {},
	"image/avif":    {},
}

// Asset describes an uploaded image.
type Asset struct {
	PublicID   string    `json:"publicId"`
	URL        string    `json:"url"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	Bytes      int       `json:"bytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadOptions controls where an upload lands.
type UploadOptions struct {
	Filename    string
	ContentType string
	Folder      string
}

// Host stores images and serves them back by URL.
type Host interface {
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// Resizer is implemented by hosts that deliver resized variants of an
// image, keyed by variant name.
type Resizer interface {
	Sizes(publicID string) map[string]string
}

// CheckUpload validates the declared content type and size of an upload.
func CheckUpload(contentType string, size int64) error {
	if _, ok := allowedTypes[normalizeType(contentType)]; !ok {
		return ErrUnsupportedType
	}
	if size > MaxUploadSize {
		return ErrTooLarge
	}
	return nil
}

func normalizeType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
}

// folderOrDefault slugifies each path segment of folder, dropping empty
// and dot segments, so the result never climbs out of the upload root.
func folderOrDefault(folder string) string {
	var parts []string
	for _, seg := range strings.Split(strings.ReplaceAll(folder, `\`, "/"), "/") {
		if s := seo.Slugify(seg); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return DefaultFolder
	}
	return strings.Join(parts, "/")
}
