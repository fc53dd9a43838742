package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCheckUpload(t *testing.T) {
	assert.NoError(t, CheckUpload("image/png", 1024))
	assert.NoError(t, CheckUpload("image/jpeg; charset=binary", 1024))
	assert.ErrorIs(t, CheckUpload("application/pdf", 1024), ErrUnsupportedType)
	assert.ErrorIs(t, CheckUpload("image/png", MaxUploadSize+1), ErrTooLarge)
}

func TestLocalUploadResizesAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	host := NewLocal(dir, "/uploads/")
	ctx := context.Background()

	a, err := host.Upload(ctx, bytes.NewReader(pngBytes(t, 2400, 600)), UploadOptions{Filename: "My Cover.PNG"})
	require.NoError(t, err)
	assert.Equal(t, "blog-images/my-cover", a.PublicID)
	assert.Equal(t, "/uploads/blog-images/my-cover.jpg", a.URL)
	assert.Equal(t, maxImageWidth, a.Width)
	assert.Equal(t, 300, a.Height)
	assert.Equal(t, "jpg", a.Format)

	b, err := host.Upload(ctx, bytes.NewReader(pngBytes(t, 10, 10)), UploadOptions{Filename: "my cover.png"})
	require.NoError(t, err)
	assert.Equal(t, "blog-images/my-cover-2", b.PublicID)

	require.NoError(t, host.Delete(ctx, a.PublicID))
	_, err = os.Stat(filepath.Join(dir, "blog-images", "my-cover.jpg"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, host.Delete(ctx, a.PublicID), "deleting twice is harmless")
}

func TestLocalUploadRejectsGarbage(t *testing.T) {
	host := NewLocal(t.TempDir(), "/uploads")
	_, err := host.Upload(context.Background(), bytes.NewReader([]byte("not an image")), UploadOptions{Filename: "x.png"})
	assert.Error(t, err)
}

// 1x1 lossless WebP.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestLocalUploadDecodesAcceptedTypes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	encode := func(enc func(io.Writer) error) []byte {
		var buf bytes.Buffer
		require.NoError(t, enc(&buf))
		return buf.Bytes()
	}
	webp, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	tests := []struct {
		contentType string
		data        []byte
	}{
		{"image/png", encode(func(w io.Writer) error { return png.Encode(w, src) })},
		{"image/jpeg", encode(func(w io.Writer) error { return jpeg.Encode(w, src, nil) })},
		{"image/gif", encode(func(w io.Writer) error { return gif.Encode(w, src, nil) })},
		{"image/bmp", encode(func(w io.Writer) error { return bmp.Encode(w, src) })},
		{"image/tiff", encode(func(w io.Writer) error { return tiff.Encode(w, src, nil) })},
		{"image/webp", webp},
	}
	host := NewLocal(t.TempDir(), "/uploads")
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			require.NoError(t, CheckUpload(tt.contentType, int64(len(tt.data))))
			a, err := host.Upload(context.Background(), bytes.NewReader(tt.data), UploadOptions{
				Filename:    "pic",
				ContentType: tt.contentType,
			})
			require.NoError(t, err)
			assert.Equal(t, "jpg", a.Format)
			assert.Positive(t, a.Width)
		})
	}

	for _, ct := range []string{"image/svg+xml", "image/avif"} {
		t.Run(ct, func(t *testing.T) {
			require.NoError(t, CheckUpload(ct, 10))
			_, err := host.Upload(context.Background(), bytes.NewReader([]byte("<svg/>")), UploadOptions{Filename: "v", ContentType: ct})
			require.ErrorIs(t, err, ErrInvalidImage)
			assert.Contains(t, err.Error(), "cloudinary")
		})
	}
}

func TestLocalStaysInsideUploadDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	host := NewLocal(dir, "/uploads")
	ctx := context.Background()

	for _, folder := range []string{"../escaped", "../../tmp", "a/../../b", `..\..\win`, "/etc"} {
		a, err := host.Upload(ctx, bytes.NewReader(pngBytes(t, 2, 2)), UploadOptions{Filename: "x.png", Folder: folder})
		require.NoError(t, err, folder)
		assert.NotContains(t, a.PublicID, "..")
		_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(a.PublicID)+".jpg"))
		assert.NoError(t, err, "stored under the upload dir")
	}
	_, err := os.Stat(filepath.Join(root, "escaped"))
	assert.True(t, os.IsNotExist(err))

	outside := filepath.Join(root, "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	for _, id := range []string{"../keep", "blog-images/../../keep", "/keep", ""} {
		assert.ErrorIs(t, host.Delete(ctx, id), ErrInvalidPublicID, id)
	}
	_, err = os.Stat(outside)
	assert.NoError(t, err, "files outside the upload dir survive")
}

func TestFolderOrDefault(t *testing.T) {
	assert.Equal(t, DefaultFolder, folderOrDefault(""))
	assert.Equal(t, DefaultFolder, folderOrDefault("../.."))
	assert.Equal(t, "covers/2024", folderOrDefault(" /Covers//2024/ "))
	assert.Equal(t, "escaped", folderOrDefault("../escaped"))
}

func TestCloudinaryURL(t *testing.T) {
	c := &Cloudinary{cloudName: "demo"}
	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/upload/c_fill,w_400,h_300,q_auto,f_auto/blog-images/cover",
		c.URL("blog-images/cover", Transform{Width: 400, Height: 300}))
	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/upload/q_80,f_webp/x",
		c.URL("x", Transform{Quality: "80", Format: "webp"}))
	sizes := c.Sizes("x")
	assert.Len(t, sizes, 5)
	assert.Contains(t, sizes["thumbnail"], "c_thumb,w_150,h_150")
}
