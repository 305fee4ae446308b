package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"gallery/auth"
	"gallery/cache"
	"gallery/errs"
	"gallery/models"

	"github.com/gin-gonic/gin"
)

type AlbumCreateRequest struct {
	Name       string `form:"name" json:"name" binding:"required"`
	ParentID   uint64 `form:"parent_id" json:"parent_id"`
	Visibility string `form:"visibility" json:"visibility"`
}

type AlbumUpdateRequest struct {
	Name       *string `form:"name" json:"name"`
	Visibility *string `form:"visibility" json:"visibility"`
}

type AlbumCoverRequest struct {
	AlbumID uint64  `form:"album_id" json:"album_id" binding:"required"`
	PhotoID *uint64 `form:"photo_id" json:"photo_id"`
}

type AlbumDeleteResponse struct {
	AlbumsDeleted int `json:"albums_deleted"`
	PhotosDeleted int `json:"photos_deleted"`
}

// AlbumPage is the album view as sent to the caller, with the URLs the browser
// loads the photos from. Grants are only shown to the owner.
type AlbumPage struct {
	Album       models.Album        `json:"album"`
	Breadcrumbs []models.Album      `json:"breadcrumbs"`
	Children    []models.AlbumCard  `json:"children"`
	Photos      []PhotoItem         `json:"photos"`
	Grants      *models.AlbumGrants `json:"grants,omitempty"`
}

func newAlbumPage(ctx context.Context, view *models.AlbumView, identity *auth.Identity) AlbumPage {
	page := AlbumPage{
		Album:    view.Album,
		Children: view.Children,
		Photos:   photoItems(ctx, view.Photos, identity.Email),
	}
	if identity.IsOwner() {
		page.Breadcrumbs = view.Breadcrumbs
		page.Grants = &view.Grants
		return page
	}
	// Private ancestors of a public album are not named to viewers
	page.Breadcrumbs = make([]models.Album, 0, len(view.Breadcrumbs))
	for i, a := range view.Breadcrumbs {
		if a.Visibility == models.AlbumPublic || i == len(view.Breadcrumbs)-1 {
			page.Breadcrumbs = append(page.Breadcrumbs, a)
		}
	}
	return page
}

func wantArchived(c *gin.Context, identity *auth.Identity) bool {
	return identity.IsOwner() && c.Query("archived") == "1"
}

// AlbumList is the flat list of every album (move targets, pickers)
func AlbumList(c *gin.Context, identity *auth.Identity) {
	albums, err := cache.Cached(c.Request.Context(), "albums:all", cache.ViewTTL, []cache.Tag{cache.TagAlbums}, models.AllAlbums)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !identity.IsOwner() {
		granted, err := models.GrantedAlbumIDs(identity.Email)
		if err != nil {
			RespondError(c, err)
			return
		}
		open := make(map[uint64]bool, len(granted))
		for _, id := range granted {
			open[id] = true
		}
		// Same rule as the root listing: not archived, and public or granted
		visible := make([]models.Album, 0, len(albums))
		for _, a := range albums {
			if a.Visibility != models.AlbumArchived && (a.Visibility == models.AlbumPublic || open[a.ID]) {
				visible = append(visible, a)
			}
		}
		albums = visible
	}
	c.JSON(http.StatusOK, albums)
}

// GalleryRoot lists the top level albums the caller may see, with covers
func GalleryRoot(c *gin.Context, identity *auth.Identity) {
	isOwner, archived := identity.IsOwner(), wantArchived(c, identity)
	key := "gallery:root:" + strconv.FormatBool(archived)
	if !isOwner {
		key = "gallery:root:viewer:" + identity.Email
	}
	tags := []cache.Tag{cache.TagAlbums, cache.TagPhotos, cache.TagRoles}
	cards, err := cache.Cached(c.Request.Context(), key, cache.ViewTTL, tags, func() ([]models.AlbumCard, error) {
		albums, err := models.RootAlbums(isOwner, archived, identity.Email)
		if err != nil {
			return nil, err
		}
		return models.AlbumCards(albums)
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// GalleryAlbum resolves /gallery/<slug>/<slug>/... to an album page
func GalleryAlbum(c *gin.Context, identity *auth.Identity) {
	var segments []string
	for _, s := range strings.Split(c.Param("path"), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	isOwner, archived := identity.IsOwner(), wantArchived(c, identity)
	key := "gallery:path:" + strings.Join(segments, "/") + ":" + strconv.FormatBool(isOwner) + ":" + strconv.FormatBool(archived)
	tags := []cache.Tag{cache.TagAlbums, cache.TagPhotos, cache.TagRoles}
	view, err := cache.Cached(c.Request.Context(), key, cache.ViewTTL, tags, func() (*models.AlbumView, error) {
		return models.ResolveAlbumPath(segments, isOwner, archived)
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	if !view.CanView(identity.Email, isOwner) {
		RespondError(c, errs.ErrForbidden)
		return
	}
	ctx, cancel := storageContext(c)
	defer cancel()
	c.JSON(http.StatusOK, newAlbumPage(ctx, view, identity))
}

func AlbumCreate(c *gin.Context, identity *auth.Identity) {
	req := AlbumCreateRequest{}
	if !bind(c, &req) {
		return
	}
	visibility := models.AlbumPrivate
	if req.Visibility != "" {
		var err error
		if visibility, err = models.ParseAlbumVisibility(req.Visibility); err != nil {
			RespondError(c, err)
			return
		}
	}
	album, err := models.CreateAlbum(req.Name, req.ParentID, visibility)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumCreated) {
		return
	}
	c.JSON(http.StatusOK, album)
}

// AlbumUpdate renames and/or changes visibility. Renaming keeps the slug.
func AlbumUpdate(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := AlbumUpdateRequest{}
	if !bind(c, &req) {
		return
	}
	if req.Name == nil && req.Visibility == nil {
		RespondError(c, errs.Validation("nothing to update"))
		return
	}
	var visibility models.AlbumVisibility
	if req.Visibility != nil {
		var err error
		if visibility, err = models.ParseAlbumVisibility(*req.Visibility); err != nil {
			RespondError(c, err)
			return
		}
	}
	album, err := models.GetAlbum(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if req.Name != nil {
		if album, err = models.RenameAlbum(id, *req.Name); err != nil {
			RespondError(c, err)
			return
		}
		if !invalidate(c, cache.AlbumRenamed) {
			return
		}
	}
	if req.Visibility != nil {
		if album, err = models.SetAlbumVisibility(id, visibility); err != nil {
			RespondError(c, err)
			return
		}
		if !invalidate(c, cache.AlbumVisibilityChanged) {
			return
		}
	}
	c.JSON(http.StatusOK, album)
}

func AlbumArchive(c *gin.Context, identity *auth.Identity) {
	setVisibility(c, models.AlbumArchived)
}

// AlbumUnarchive brings an album back as private
func AlbumUnarchive(c *gin.Context, identity *auth.Identity) {
	setVisibility(c, models.AlbumPrivate)
}

func setVisibility(c *gin.Context, visibility models.AlbumVisibility) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	album, err := models.SetAlbumVisibility(id, visibility)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumVisibilityChanged) {
		return
	}
	c.JSON(http.StatusOK, album)
}

// AlbumSetCover sets (or, without photo_id, clears) the explicit cover
func AlbumSetCover(c *gin.Context, identity *auth.Identity) {
	req := AlbumCoverRequest{}
	if !bind(c, &req) {
		return
	}
	album, err := models.SetAlbumCover(req.AlbumID, req.PhotoID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumCoverChanged) {
		return
	}
	c.JSON(http.StatusOK, album)
}

// AlbumDelete removes the album, its sub-albums and all their photos
func AlbumDelete(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := storageContext(c)
	defer cancel()
	plan, err := models.DeleteAlbumTree(ctx, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumDeleted) {
		return
	}
	c.JSON(http.StatusOK, AlbumDeleteResponse{AlbumsDeleted: len(plan.AlbumIDs), PhotosDeleted: len(plan.Photos)})
}

// AlbumDeleteEmpty removes albums that have no photos anywhere below them
func AlbumDeleteEmpty(c *gin.Context, identity *auth.Identity) {
	deleted, err := models.DeleteEmptyAlbums()
	if err != nil {
		RespondError(c, err)
		return
	}
	if deleted > 0 && !invalidate(c, cache.EmptyAlbumsDeleted) {
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: int64(deleted)})
}

// AlbumPhotos lists the photos of an album and its sub-albums, for the cover picker
func AlbumPhotos(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	photos, err := models.AlbumPhotosRecursive(id)
	if err != nil {
		RespondError(c, err)
		return
	}
	views := make([]models.PhotoView, len(photos))
	for i, p := range photos {
		views[i] = models.PhotoView{Photo: p, LikedBy: []string{}}
	}
	ctx, cancel := storageContext(c)
	defer cancel()
	c.JSON(http.StatusOK, photoItems(ctx, views, identity.Email))
}
