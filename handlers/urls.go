package handlers

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"

	"gallery/logging"
	"gallery/models"
	"gallery/processing"
	"gallery/storage"
)

// Extensions browsers cannot display, served transcoded at full size. HEIC is
// not decoded server side, those originals go out signed (Safari shows them).
var transcodedExtensions = map[string]bool{
	".dng":  true,
	".tif":  true,
	".tiff": true,
}

// PhotoItem is a photo as sent to the browser. Who liked it stays server side,
// only the count and the caller's own like are exposed.
type PhotoItem struct {
	models.Photo
	LikeCount    int    `json:"like_count"`
	Liked        bool   `json:"liked"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func thumbnailURL(key string, width int, full bool) string {
	q := url.Values{}
	q.Set("key", key)
	if full {
		q.Set("full", "1")
	} else {
		q.Set("w", strconv.Itoa(width))
	}
	return "/photos/thumbnail?" + q.Encode()
}

// photoURLs says where the browser fetches a photo from. Public objects are
// read straight from their bucket.
func photoURLs(ctx context.Context, photo models.Photo) (full, thumb string) {
	backend := storage.For(photo.StorageProvider)
	if public, ok := backend.(storage.PublicURLer); ok && photo.StorageProvider == storage.ProviderOracle {
		u := public.PublicURL(photo.StorageKey)
		return u, u
	}
	thumb = thumbnailURL(photo.StorageKey, processing.DefaultWidth, false)
	if transcodedExtensions[strings.ToLower(path.Ext(photo.StorageKey))] {
		return thumbnailURL(photo.StorageKey, 0, true), thumb
	}
	if signer, ok := backend.(storage.DownloadSigner); ok {
		signed, err := signer.DownloadURL(ctx, photo.StorageKey)
		if err == nil {
			return signed, thumb
		}
		logging.FromContext(ctx).Warn("Cannot sign download URL", logging.String("key", photo.StorageKey), logging.Err(err))
	}
	return thumbnailURL(photo.StorageKey, 0, true), thumb
}

func photoItems(ctx context.Context, photos []models.PhotoView, email string) []PhotoItem {
	email = models.NormalizeEmail(email)
	items := make([]PhotoItem, len(photos))
	for i, p := range photos {
		items[i] = PhotoItem{Photo: p.Photo, LikeCount: len(p.LikedBy)}
		for _, liker := range p.LikedBy {
			if email != "" && liker == email {
				items[i].Liked = true
				break
			}
		}
		items[i].URL, items[i].ThumbnailURL = photoURLs(ctx, p.Photo)
	}
	return items
}
