package handlers

import (
	"net/http"

	"gallery/auth"
	"gallery/cache"
	"gallery/models"

	"github.com/gin-gonic/gin"
)

type RoleCreateRequest struct {
	Name  string `form:"name" json:"name" binding:"required"`
	Color string `form:"color" json:"color"`
}

type RoleIDRequest struct {
	RoleID uint64 `form:"role_id" json:"role_id" binding:"required"`
}

type RoleAssignRequest struct {
	RoleID uint64 `form:"role_id" json:"role_id" binding:"required"`
	Email  string `form:"email" json:"email" binding:"required"`
}

type RoleAlbumRequest struct {
	RoleID  uint64 `form:"role_id" json:"role_id" binding:"required"`
	AlbumID uint64 `form:"album_id" json:"album_id" binding:"required"`
}

type AlbumPermissionRequest struct {
	Email string `form:"email" json:"email" binding:"required"`
}

func RoleList(c *gin.Context, identity *auth.Identity) {
	roles, err := models.ListRoles()
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func RoleCreate(c *gin.Context, identity *auth.Identity) {
	req := RoleCreateRequest{}
	if !bind(c, &req) {
		return
	}
	role, err := models.CreateRole(req.Name, req.Color)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.RoleCreated) {
		return
	}
	c.JSON(http.StatusOK, role)
}

func RoleDelete(c *gin.Context, identity *auth.Identity) {
	req := RoleIDRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.DeleteRole(req.RoleID); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.RoleDeleted) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func RoleAssign(c *gin.Context, identity *auth.Identity) {
	req := RoleAssignRequest{}
	if !bind(c, &req) {
		return
	}
	user, err := models.AssignRole(req.RoleID, req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.RoleMembersChanged) {
		return
	}
	c.JSON(http.StatusOK, user)
}

func RoleUnassign(c *gin.Context, identity *auth.Identity) {
	req := RoleAssignRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.UnassignRole(req.RoleID, req.Email); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.RoleMembersChanged) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func RoleGrantAlbum(c *gin.Context, identity *auth.Identity) {
	req := RoleAlbumRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.GrantAlbum(req.RoleID, req.AlbumID); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumGrantsChanged) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func RoleRevokeAlbum(c *gin.Context, identity *auth.Identity) {
	req := RoleAlbumRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.RevokeAlbum(req.RoleID, req.AlbumID); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumGrantsChanged) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

// AlbumGrantUser opens a single album to one user by email
func AlbumGrantUser(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := AlbumPermissionRequest{}
	if !bind(c, &req) {
		return
	}
	user, err := models.GrantUser(id, req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumGrantsChanged) {
		return
	}
	c.JSON(http.StatusOK, user)
}

func AlbumRevokeUser(c *gin.Context, identity *auth.Identity) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req := AlbumPermissionRequest{}
	if !bind(c, &req) {
		return
	}
	if err := models.RevokeUser(id, req.Email); err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.AlbumGrantsChanged) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
