package handlers

import (
	"net/http"
	"strconv"

	"gallery/auth"
	"gallery/cache"
	"gallery/errs"
	"gallery/models"
	"gallery/processing"
	"gallery/storage"

	"github.com/gin-gonic/gin"
)

type ThumbnailRequest struct {
	Key   string `form:"key" binding:"required"`
	Width int    `form:"w"`
	Full  string `form:"full"`
}

func locate(c *gin.Context, key string) (models.PhotoLocation, error) {
	return cache.Cached(c.Request.Context(), "locate:"+key, cache.LookupTTL, []cache.Tag{cache.TagPhotos}, func() (models.PhotoLocation, error) {
		return models.LocatePhoto(key)
	})
}

func canView(c *gin.Context, albumID uint64, identity *auth.Identity) (bool, error) {
	key := "access:" + strconv.FormatUint(albumID, 10) + ":" + identity.Email
	tags := []cache.Tag{cache.TagAlbums, cache.TagRoles}
	return cache.Cached(c.Request.Context(), key, cache.ViewTTL, tags, func() (bool, error) {
		return models.CanViewAlbum(albumID, identity.Email, false)
	})
}

// PhotoThumbnail serves a photo for display. Public objects are a redirect,
// private ones are transcoded to JPEG, and any failure renders a blank pixel.
func PhotoThumbnail(c *gin.Context, identity *auth.Identity) {
	req := ThumbnailRequest{}
	if !bind(c, &req) {
		return
	}
	location, err := locate(c, req.Key)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !identity.IsOwner() {
		// Objects without a visible row are only served to the owner
		if !location.Found || location.Hidden {
			RespondError(c, errs.NotFound("photo not found"))
			return
		}
		allowed, err := canView(c, location.AlbumID, identity)
		if err != nil {
			RespondError(c, err)
			return
		}
		if !allowed {
			RespondError(c, errs.ErrForbidden)
			return
		}
	}

	backend := storage.For(location.Provider)
	if location.Provider == storage.ProviderOracle {
		if public, ok := backend.(storage.PublicURLer); ok {
			c.Redirect(http.StatusFound, public.PublicURL(req.Key))
			return
		}
	}
	full := req.Full == "1" || req.Full == "true"
	result := processing.Render(c.Request.Context(), backend, req.Key, req.Width, full)
	c.Header("Cache-Control", result.CacheControl)
	c.Data(http.StatusOK, result.ContentType, result.Body)
}
