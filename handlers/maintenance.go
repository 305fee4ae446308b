package handlers

import (
	"net/http"

	"gallery/auth"
	"gallery/cache"
	"gallery/maintenance"
	"gallery/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type StorageUsageResponse struct {
	R2Bytes     int64 `json:"r2_bytes"`
	OracleBytes int64 `json:"oracle_bytes"`
	TotalBytes  int64 `json:"total_bytes"`
}

// Sync reconciles the database with the full listing of the private bucket
func Sync(c *gin.Context, identity *auth.Identity) {
	ctx := c.Request.Context()
	var objects []storage.Object
	err := storage.For(storage.ProviderR2).List(ctx, func(obj storage.Object) error {
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		RespondError(c, storageError(err, "cannot list the bucket"))
		return
	}
	result, err := maintenance.Reconcile(ctx, objects)
	// Rows written before a failure stay, so caches are dropped either way
	if !invalidate(c, cache.LibrarySynced) {
		return
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func Deduplicate(c *gin.Context, identity *auth.Identity) {
	result, err := maintenance.Deduplicate(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	if !invalidate(c, cache.LibraryDeduplicated) {
		return
	}
	c.JSON(http.StatusOK, result)
}

// StorageUsage sums object sizes of both buckets concurrently
func StorageUsage(c *gin.Context, identity *auth.Identity) {
	var (
		g        errgroup.Group
		response StorageUsageResponse
	)
	ctx := c.Request.Context()
	g.Go(func() (err error) {
		response.R2Bytes, err = storage.For(storage.ProviderR2).TotalStoredBytes(ctx)
		return
	})
	g.Go(func() (err error) {
		response.OracleBytes, err = storage.For(storage.ProviderOracle).TotalStoredBytes(ctx)
		return
	})
	if err := g.Wait(); err != nil {
		RespondError(c, storageError(err, "cannot compute storage usage"))
		return
	}
	response.TotalBytes = response.R2Bytes + response.OracleBytes
	c.JSON(http.StatusOK, response)
}
