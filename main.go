package main

import (
	"strings"
	"time"

	"gallery/auth"
	"gallery/cache"
	"gallery/config"
	"gallery/db"
	"gallery/handlers"
	"gallery/logging"
	"gallery/metrics"
	"gallery/models"
	"gallery/storage"
	"gallery/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := logging.Init(config.LOG_LEVEL, config.LOG_FORMAT); err != nil {
		panic(err)
	}
	defer logging.Sync()
	db.Init()
	models.Init()
	storage.Init()
	cache.Init()

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter()

	var err error
	if config.TLS_DOMAINS != "" {
		err = autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
	} else {
		err = router.Run(config.BIND_ADDRESS)
	}
	logging.Fatal("Server stopped", logging.Err(err))
}

func newRouter() *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies([]string{})
	router.Use(gin.Recovery(), utils.RequestLogMiddleware)
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))
	if !config.DEBUG_MODE {
		// Thumbnails are JPEG already
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/photos/thumbnail", "/local"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	// Custom Auth Router
	authRouter := &auth.Router{Base: router, Reject: handlers.RespondError}
	// Browsing
	authRouter.GET("/albums", handlers.AlbumList)
	authRouter.GET("/gallery", handlers.GalleryRoot)
	authRouter.GET("/gallery/*path", handlers.GalleryAlbum) // Access checks are done inside the handler
	authRouter.GET("/albums/:id/photos", handlers.AlbumPhotos, auth.Owner)
	// Album handlers
	authRouter.POST("/albums", handlers.AlbumCreate, auth.Owner)
	authRouter.DELETE("/albums/empty", handlers.AlbumDeleteEmpty, auth.Owner)
	authRouter.PATCH("/albums/:id", handlers.AlbumUpdate, auth.Owner)
	authRouter.DELETE("/albums/:id", handlers.AlbumDelete, auth.Owner)
	authRouter.POST("/albums/:id/archive", handlers.AlbumArchive, auth.Owner)
	authRouter.POST("/albums/:id/unarchive", handlers.AlbumUnarchive, auth.Owner)
	authRouter.POST("/albums/:id/permissions", handlers.AlbumGrantUser, auth.Owner)
	authRouter.DELETE("/albums/:id/permissions", handlers.AlbumRevokeUser, auth.Owner)
	authRouter.POST("/albums/cover", handlers.AlbumSetCover, auth.Owner)
	// Photo handlers
	authRouter.POST("/photos/upload", handlers.PhotoUpload, auth.Owner)
	authRouter.POST("/photos/sign", handlers.PhotoSign, auth.Owner)
	authRouter.POST("/photos", handlers.PhotoRegister, auth.Owner)
	authRouter.POST("/photos/move", handlers.PhotoMove, auth.Owner)
	authRouter.POST("/photos/reorder", handlers.PhotoReorder, auth.Owner)
	authRouter.DELETE("/photos/:id", handlers.PhotoDelete, auth.Owner)
	authRouter.PATCH("/photos/:id/caption", handlers.PhotoCaption, auth.Owner)
	authRouter.POST("/photos/:id/like", handlers.PhotoLike)      // Album access is checked inside the handler
	authRouter.GET("/photos/thumbnail", handlers.PhotoThumbnail) // Album access is checked inside the handler
	// Library maintenance
	authRouter.POST("/sync", handlers.Sync, auth.Owner)
	authRouter.POST("/deduplicate", handlers.Deduplicate, auth.Owner)
	authRouter.POST("/storage-usage", handlers.StorageUsage, auth.Owner)
	// Roles
	authRouter.GET("/roles", handlers.RoleList, auth.Owner)
	authRouter.POST("/roles", handlers.RoleCreate, auth.Owner)
	authRouter.DELETE("/roles", handlers.RoleDelete, auth.Owner)
	authRouter.POST("/roles/assign", handlers.RoleAssign, auth.Owner)
	authRouter.DELETE("/roles/assign", handlers.RoleUnassign, auth.Owner)
	authRouter.POST("/roles/albums", handlers.RoleGrantAlbum, auth.Owner)
	authRouter.DELETE("/roles/albums", handlers.RoleRevokeAlbum, auth.Owner)

	// Objects of the local public bucket stand-in
	if disk, ok := storage.For(storage.ProviderOracle).(*storage.DiskStorage); ok && config.LOCAL_PUBLIC_URL != "" {
		local := router.Group(config.LOCAL_PUBLIC_URL, (&utils.CacheRouter{CacheTime: utils.CacheWeek, Public: true}).Handler())
		local.Static("/", disk.BasePath)
	}
	// Misc
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/robots.txt", handlers.DisallowRobots)
	return router
}
