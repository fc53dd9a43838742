package media

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var _ Resizer = (*Cloudinary)(nil)

// Cloudinary uploads images to a Cloudinary account.
type Cloudinary struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

// NewCloudinary creates a Cloudinary host from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, cloudName: cloudName}, nil
}

// Upload streams r to Cloudinary under the requested folder.
func (c *Cloudinary) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Asset, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder: folderOrDefault(opts.Folder),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Asset{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return Asset{
		PublicID:   res.PublicID,
		URL:        res.SecureURL,
		Width:      res.Width,
		Height:     res.Height,
		Format:     res.Format,
		Bytes:      res.Bytes,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Delete removes an image by public id.
func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

// Transform describes a delivery-time resize of an image.
type Transform struct {
	Width   int
	Height  int
	Crop    string
	Quality string
	Format  string
}

func (t Transform) String() string {
	var parts []string
	if t.Width > 0 || t.Height > 0 {
		crop := t.Crop
		if crop == "" {
			crop = "fill"
		}
		parts = append(parts, "c_"+crop)
		if t.Width > 0 {
			parts = append(parts, "w_"+strconv.Itoa(t.Width))
		}
		if t.Height > 0 {
			parts = append(parts, "h_"+strconv.Itoa(t.Height))
		}
	}
	q := t.Quality
	if q == "" {
		q = "auto"
	}
	f := t.Format
	if f == "" {
		f = "auto"
	}
	parts = append(parts, "q_"+q, "f_"+f)
	return strings.Join(parts, ",")
}

// URL returns the https delivery URL of publicID with t applied.
func (c *Cloudinary) URL(publicID string, t Transform) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s/%s", c.cloudName, t, publicID)
}

// Sizes returns the standard responsive variants of an image.
func (c *Cloudinary) Sizes(publicID string) map[string]string {
	return map[string]string{
		"thumbnail": c.URL(publicID, Transform{Width: 150, Height: 150, Crop: "thumb"}),
		"small":     c.URL(publicID, Transform{Width: 400, Height: 300}),
		"medium":    c.URL(publicID, Transform{Width: 800, Height: 600}),
		"large":     c.URL(publicID, Transform{Width: 1200, Height: 900}),
		"og":        c.URL(publicID, Transform{Width: 1200, Height: 630, Crop: "fill"}),
	}
}
