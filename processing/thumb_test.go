package processing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"gallery/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func backendWith(t *testing.T, objects map[string][]byte) storage.Backend {
	t.Helper()
	backend := storage.NewDiskStorage(storage.ProviderR2, t.TempDir(), "")
	for key, data := range objects {
		require.NoError(t, backend.Put(context.Background(), key, data, ""))
	}
	return backend
}

func decodedSize(t *testing.T, r Result) (int, int) {
	t.Helper()
	require.False(t, r.Fallback)
	assert.Equal(t, "image/jpeg", r.ContentType)
	assert.Equal(t, CacheForever, r.CacheControl)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(r.Body))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestTargetWidth(t *testing.T) {
	tests := []struct {
		requested int
		full      bool
		want      int
	}{
		{0, false, DefaultWidth},
		{-5, false, DefaultWidth},
		{200, false, 200},
		{2000, false, MaxThumbWidth},
		{0, true, MaxFullWidth},
		{1600, true, 1600},
		{20000, true, MaxFullWidth},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetWidth(tt.requested, tt.full), "%d full=%v", tt.requested, tt.full)
	}
}

func TestRenderThumbnail(t *testing.T) {
	ctx := context.Background()
	backend := backendWith(t, map[string][]byte{
		"travel/italy/1700000000000-sunset.jpg": jpegBytes(t, 1200, 600),
	})

	w, h := decodedSize(t, Render(ctx, backend, "travel/italy/1700000000000-sunset.jpg", 400, false))
	assert.LessOrEqual(t, w, 400)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)

	w, _ = decodedSize(t, Render(ctx, backend, "travel/italy/1700000000000-sunset.jpg", 5000, false))
	assert.Equal(t, MaxThumbWidth, w)
}

func TestRenderFullKeepsSourceResolution(t *testing.T) {
	backend := backendWith(t, map[string][]byte{"raw/photo.jpg": jpegBytes(t, 1200, 600)})
	w, h := decodedSize(t, Render(context.Background(), backend, "raw/photo.jpg", 0, true))
	assert.Equal(t, 1200, w)
	assert.Equal(t, 600, h)
}

func TestRenderNeverUpscales(t *testing.T) {
	backend := backendWith(t, map[string][]byte{"small.jpg": jpegBytes(t, 300, 200)})
	w, h := decodedSize(t, Render(context.Background(), backend, "small.jpg", 800, false))
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestRenderTranscodesToJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(640, 480)))
	backend := backendWith(t, map[string][]byte{"scan.png": buf.Bytes()})
	w, h := decodedSize(t, Render(context.Background(), backend, "scan.png", 320, false))
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestRenderFallback(t *testing.T) {
	backend := backendWith(t, map[string][]byte{
		"corrupt.jpg":   []byte("definitely not a jpeg"),
		"truncated.jpg": jpegBytes(t, 100, 100)[:40],
	})
	for _, key := range []string{"corrupt.jpg", "truncated.jpg", "missing.jpg"} {
		r := Render(context.Background(), backend, key, 400, false)
		assert.True(t, r.Fallback, key)
		assert.Equal(t, fallbackPixel, r.Body, key)
		assert.Equal(t, "image/gif", r.ContentType)
		assert.Equal(t, CacheNever, r.CacheControl)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(fallbackPixel))
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
	assert.Equal(t, 1, cfg.Width)
}

type panickyBackend struct{ storage.Backend }

func (panickyBackend) Get(context.Context, string) ([]byte, error) {
	panic("decoder exploded")
}

func TestRenderRecoversFromPanics(t *testing.T) {
	r := Render(context.Background(), panickyBackend{}, "any.jpg", 400, false)
	assert.True(t, r.Fallback)
}

func TestApplyOrientation(t *testing.T) {
	img := testImage(40, 20)
	for orientation, want := range map[int]image.Point{
		1: {40, 20}, 2: {40, 20}, 3: {40, 20}, 4: {40, 20},
		5: {20, 40}, 6: {20, 40}, 7: {20, 40}, 8: {20, 40},
		0: {40, 20}, 9: {40, 20},
	} {
		assert.Equal(t, want, applyOrientation(img, orientation).Bounds().Size(), "orientation %d", orientation)
	}
}

func TestReadOrientationWithoutExif(t *testing.T) {
	assert.Equal(t, 1, readOrientation(jpegBytes(t, 10, 10)))
	assert.Equal(t, 1, readOrientation([]byte("garbage")))
}
