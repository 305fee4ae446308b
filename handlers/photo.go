package handlers

import (
	"net/http"

	"gallery/auth"
	"gallery/cache"
	"gallery/errs"
	"gallery/models"

	"github.com/gin-gonic/gin"
)

type PhotoMoveRequest struct {
	PhotoIDs []uint64 `form:"photo_ids" json:"photo_ids" binding:"required"`
	AlbumID  uint64   `form:"album_id" json:"album_id" binding:"required"`
}

type PhotoCaptionRequest struct {
	Caption string `form:"caption" json:"caption"`
}

type PhotoReorderRequest struct {
	AlbumID  uint64   `form:"album_id" json:"album_id" binding:"required"`
	PhotoIDs []uint64 `form:"photo_ids" json:"photo_ids" binding:"required"`
}

type LikeResponse struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// PhotoMove reassigns photos to another album without touching their objects
func PhotoMove(c *gin.Context, identity *auth.Identity) {
	req := PhotoMoveRequest{}
	if !bind(c, &req) {
		return
	}
	moved, err := models.MovePhotos(req.PhotoIDs, req.AlbumID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoMoved) {
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: moved})
}

func PhotoDelete(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := storageContext(c)
	defer cancel()
	if err := models.DeletePhoto(ctx, id); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoDeleted) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func PhotoCaption(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := PhotoCaptionRequest{}
	if !bind(c, &req) {
		return
	}
	photo, err := models.SetCaption(id, req.Caption)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoCaptioned) {
		return
	}
	c.JSON(http.StatusOK, photo)
}

// PhotoLike toggles the caller's like on a photo they can see
func PhotoLike(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if identity.Email == "" {
		RespondError(c, errs.Forbidden("an email address is required to like photos"))
		return
	}
	photo, err := models.GetPhoto(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	allowed, err := models.CanViewAlbum(photo.AlbumID, identity.Email, identity.IsOwner())
	if err != nil {
		RespondError(c, err)
		return
	}
	if !allowed {
		RespondError(c, errs.ErrForbidden)
		return
	}
	liked, count, err := models.ToggleLike(id, identity.Email, identity.DisplayName())
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotoLiked) {
		return
	}
	c.JSON(http.StatusOK, LikeResponse{Liked: liked, Count: count})
}

// PhotoReorder sets the manual order of an album's photos to the given list
func PhotoReorder(c *gin.Context, identity *auth.Identity) {
	req := PhotoReorderRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.ReorderPhotos(req.AlbumID, req.PhotoIDs); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.PhotosReordered) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
