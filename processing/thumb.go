// Package processing turns stored originals into browser friendly JPEGs.
package processing

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"gallery/config"
	"gallery/logging"
	"gallery/metrics"
	"gallery/storage"
)

const (
	DefaultWidth  = 400
	MaxThumbWidth = 800
	MaxFullWidth  = 8192

	thumbQuality = 75
	fullQuality  = 100

	CacheForever = "public, max-age=604800, s-maxage=604800"
	CacheNever   = "no-cache"
)

// 1x1 transparent GIF
var fallbackPixel, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

type Result struct {
	Body         []byte
	ContentType  string
	CacheControl string
	Fallback     bool
}

func Fallback() Result {
	return Result{Body: fallbackPixel, ContentType: "image/gif", CacheControl: CacheNever, Fallback: true}
}

// TargetWidth is the widest output allowed for a request. Zero or negative
// means not requested.
func TargetWidth(requested int, full bool) int {
	limit, def := MaxThumbWidth, DefaultWidth
	if full {
		limit, def = MaxFullWidth, MaxFullWidth
	}
	if requested <= 0 {
		requested = def
	}
	return min(requested, limit)
}

// Render fetches key from backend and returns a JPEG never wider than the
// target width. It never fails: any problem yields the fallback pixel.
func Render(ctx context.Context, backend storage.Backend, key string, width int, full bool) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("Thumbnail panic", logging.String("key", key), logging.String("panic", fmt.Sprint(r)))
			result = Fallback()
		}
		metrics.RecordThumbnail(full, result.Fallback, start)
	}()

	ctx, cancel := context.WithTimeout(ctx, config.STORAGE_TIMEOUT)
	defer cancel()
	data, err := backend.Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx).Warn("Thumbnail source unavailable", logging.String("key", key), logging.Err(err))
		return Fallback()
	}
	quality := thumbQuality
	if full {
		quality = fullQuality
	}
	body, err := transcode(data, TargetWidth(width, full), quality)
	if err != nil {
		logging.FromContext(ctx).Warn("Thumbnail transcode failed", logging.String("key", key), logging.Err(err))
		return Fallback()
	}
	return Result{Body: body, ContentType: "image/jpeg", CacheControl: CacheForever}
}
