package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/middleware"
	"mediavault/internal/pipeline"
	"mediavault/internal/repository"
	"mediavault/internal/storage"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	jobs    *repository.JobRepository
	media   *repository.MediaRepository
	store   *storage.ObjectStore
	batcher pipeline.Enqueuer
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, jobs *repository.JobRepository, media *repository.MediaRepository, store *storage.ObjectStore, batcher pipeline.Enqueuer) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     cfg,
		jobs:    jobs,
		media:   media,
		store:   store,
		batcher: batcher,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	media := v1.Group("/media")
	media.Use(middleware.Auth(h.cfg))
	media.POST("/upload-request", h.UploadRequest)
	media.POST("/:id/confirm", h.ConfirmUpload)

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.cfg),
		middleware.RequireRoles("admin", "superadmin"),
	)
	admin.GET("/media", h.AdminListMedia)
}
