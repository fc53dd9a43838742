package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/parth-105/Vyakta/seo"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
)

// Local stores images on disk, resized to at most maxImageWidth and
// re-encoded as JPEG. It is used when no remote host is configured.
type Local struct {
	Dir     string // filesystem root, e.g. "public/uploads"
	BaseURL string // URL prefix Dir is served under, e.g. "/uploads"
}

// NewLocal returns a Local host writing into dir and serving from baseURL.
func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// undecodableTypes are accepted uploads that have no decoder here.
var undecodableTypes = map[string]string{
	"image/svg+xml": "svg",
	"image/avif":    "avif",
}

// Upload decodes, resizes and stores the image. Public ids are
// folder/slugified-name, made unique with a numeric suffix.
func (l *Local) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Asset, error) {
	if kind, ok := undecodableTypes[normalizeType(opts.ContentType)]; ok {
		return Asset{}, fmt.Errorf("%w: %s images need the cloudinary media host", ErrInvalidImage, kind)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Asset{}, fmt.Errorf("encode jpeg: %w", err)
	}

	folder := folderOrDefault(opts.Folder)
	dir := filepath.Join(l.Dir, filepath.FromSlash(folder))
	if !l.contains(dir) {
		return Asset{}, fmt.Errorf("%w: folder %q", ErrInvalidPublicID, opts.Folder)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("create upload dir: %w", err)
	}
	name := l.uniqueName(dir, baseName(opts.Filename))
	if err := os.WriteFile(filepath.Join(dir, name+".jpg"), buf.Bytes(), 0o644); err != nil {
		return Asset{}, fmt.Errorf("write image: %w", err)
	}

	publicID := folder + "/" + name
	return Asset{
		PublicID:   publicID,
		URL:        l.BaseURL + "/" + publicID + ".jpg",
		Width:      w,
		Height:     h,
		Format:     "jpg",
		Bytes:      buf.Len(),
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Delete removes the stored file. A missing file is not an error. Ids
// are made only of slug segments, as Upload produces them.
func (l *Local) Delete(ctx context.Context, publicID string) error {
	for _, seg := range strings.Split(publicID, "/") {
		if !seo.ValidSlug(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
		}
	}
	path := filepath.Join(l.Dir, filepath.FromSlash(publicID)+".jpg")
	if !l.contains(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// contains reports whether path lies inside l.Dir.
func (l *Local) contains(path string) bool {
	rel, err := filepath.Rel(l.Dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func baseName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if s := seo.Slugify(base); s != "" {
		return s
	}
	return "image"
}

func (l *Local) uniqueName(dir, base string) string {
	candidate := base
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate+".jpg")); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
