package handlers

import (
	"bytes"
	"errors"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"gallery/auth"
	"gallery/cache"
	"gallery/config"
	"gallery/errs"
	"gallery/logging"
	"gallery/models"
	"gallery/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

type UploadRequest struct {
	AlbumID  uint64 `form:"album_id" binding:"required"`
	Provider string `form:"provider"`
}

type SignRequest struct {
	AlbumID     uint64 `form:"album_id" json:"album_id" binding:"required"`
	Filename    string `form:"filename" json:"filename" binding:"required"`
	ContentType string `form:"content_type" json:"content_type"`
}

type SignResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type RegisterRequest struct {
	AlbumID  uint64 `form:"album_id" json:"album_id" binding:"required"`
	Key      string `form:"key" json:"key" binding:"required"`
	Filename string `form:"filename" json:"filename" binding:"required"`
	FileSize int64  `form:"file_size" json:"file_size"`
	Width    *int   `form:"width" json:"width"`
	Height   *int   `form:"height" json:"height"`
}

// now is replaced in tests
var now = time.Now

func acceptedType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// objectKey places a new object below the album's current slug path
func objectKey(albumID uint64, filename string) (string, error) {
	slugs, err := models.AlbumSlugPath(albumID)
	if err != nil {
		return "", err
	}
	return storage.BuildKey(slugs, now(), filename), nil
}

// PhotoUpload stores a multipart file in the chosen bucket and registers it.
// Nothing is written to the database unless the object was stored.
func PhotoUpload(c *gin.Context, identity *auth.Identity) {
	req := UploadRequest{}
	if !bind(c, &req) {
		return
	}
	provider, err := storage.ParseProvider(req.Provider)
	if err != nil {
		RespondError(c, errs.Validation(err.Error()))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, errs.Validation("file is required"))
		return
	}
	maxSize := int64(config.MAX_UPLOAD_SIZE_MB) << 20
	if fileHeader.Size > maxSize {
		RespondError(c, errs.Validation("file is too large"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, errs.Validation("cannot read file"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		RespondError(c, errs.Validation("cannot read file"))
		return
	}
	contentType := mimetype.Detect(data).String()
	if !acceptedType(contentType) {
		RespondError(c, errs.Validation("unsupported file type "+contentType))
		return
	}
	key, err := objectKey(req.AlbumID, fileHeader.Filename)
	if err != nil {
		RespondError(c, err)
		return
	}

	// Never overwrite the object of another row (double submit in the same millisecond)
	taken, err := models.PhotoKeyTaken(provider, key)
	if err != nil {
		RespondError(c, err)
		return
	}
	if taken {
		RespondError(c, errs.Conflict(nil, "a photo with this storage key already exists, please retry"))
		return
	}

	ctx, cancel := storageContext(c)
	defer cancel()
	backend := storage.For(provider)
	if err = backend.Put(ctx, key, data, contentType); err != nil {
		RespondError(c, storageError(err, "upload failed"))
		return
	}
	photo := models.Photo{
		AlbumID:         req.AlbumID,
		Filename:        fileHeader.Filename,
		StorageKey:      key,
		StorageProvider: provider,
		FileSize:        int64(len(data)),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		photo.Width, photo.Height = &cfg.Width, &cfg.Height
	}
	if err = models.CreatePhoto(&photo); err != nil {
		// A duplicate means a concurrent request registered the same key and owns the object now
		if errs.IsDuplicate(err) || errors.Is(err, errs.ErrConflict) {
			RespondError(c, err)
			return
		}
		if delErr := backend.Delete(ctx, key); delErr != nil {
			logging.FromContext(ctx).Warn("Cannot remove object of failed upload", logging.String("key", key), logging.Err(delErr))
		}
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoAdded) {
		return
	}
	c.JSON(http.StatusOK, photo)
}

// PhotoSign hands out a short lived URL to PUT an object into the private bucket
func PhotoSign(c *gin.Context, identity *auth.Identity) {
	req := SignRequest{}
	if !bind(c, &req) {
		return
	}
	if req.ContentType != "" && !acceptedType(req.ContentType) {
		RespondError(c, errs.Validation("unsupported file type "+req.ContentType))
		return
	}
	signer, ok := storage.For(storage.ProviderR2).(storage.UploadSigner)
	if !ok {
		RespondError(c, errs.Validation("direct uploads are not supported by the configured storage, use /photos/upload"))
		return
	}
	key, err := objectKey(req.AlbumID, req.Filename)
	if err != nil {
		RespondError(c, err)
		return
	}
	ctx, cancel := storageContext(c)
	defer cancel()
	signed, err := signer.UploadURL(ctx, key, req.ContentType)
	if err != nil {
		RespondError(c, storageError(err, "cannot sign upload"))
		return
	}
	c.JSON(http.StatusOK, SignResponse{URL: signed, Key: key})
}

// PhotoRegister records an object uploaded through a signed URL
func PhotoRegister(c *gin.Context, identity *auth.Identity) {
	req := RegisterRequest{}
	if !bind(c, &req) {
		return
	}
	photo := models.Photo{
		AlbumID:         req.AlbumID,
		Filename:        req.Filename,
		StorageKey:      req.Key,
		StorageProvider: storage.ProviderR2,
		FileSize:        req.FileSize,
		Width:           req.Width,
		Height:          req.Height,
	}
	if err := models.CreatePhoto(&photo); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoAdded) {
		return
	}
	c.JSON(http.StatusOK, photo)
}
