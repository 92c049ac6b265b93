package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"mediavault/internal/ids"
	"mediavault/internal/models"
	"mediavault/internal/repository"
)

type uploadRequestBody struct {
	FileName     string `json:"fileName" binding:"required"`
	FileSize     int64  `json:"fileSize" binding:"required,gt=0"`
	SHA256Hash   string `json:"sha256" binding:"required,len=64"`
	MimeType     string `json:"mimeType" binding:"required"`
	LinkedToID   string `json:"linkedToId"`
	LinkedToType string `json:"linkedToType"`
}

// UploadRequest creates a job in awaiting_upload and hands the client a
// presigned PUT URL into the staging bucket.
func (h HandlerSet) UploadRequest(c *gin.Context) {
	userID := c.GetString("current_user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body uploadRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := models.ClassForMime(body.MimeType); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_media_type"})
		return
	}

	jobID := ids.New()
	objectKey := buildObjectKey(jobID, body.FileName)

	job := models.MediaJob{
		ID:           jobID,
		UserID:       userID,
		FileName:     objectKey,
		FileSize:     body.FileSize,
		SHA256Hash:   body.SHA256Hash,
		MimeType:     body.MimeType,
		LinkedToID:   body.LinkedToID,
		LinkedToType: body.LinkedToType,
		Status:       models.JobStatusAwaitingUpload,
	}

	if err := h.jobs.Create(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("create job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_job_failed"})
		return
	}

	uploadURL, err := h.store.PresignedUploadURL(c.Request.Context(), h.cfg.Storage.BucketStaging, objectKey, h.cfg.Storage.UploadURLTTL)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("presign upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presign_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":     jobID,
		"uploadUrl": uploadURL,
		"expiresIn": int(h.cfg.Storage.UploadURLTTL.Seconds()),
	})
}

// ConfirmUpload flips a job to pending and admits it to the batching queue.
// This is the live-traffic entry into the moderation pipeline.
func (h HandlerSet) ConfirmUpload(c *gin.Context) {
	userID := c.GetString("current_user_id")
	jobID := c.Param("id")

	job, err := h.jobs.GetByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job_not_found"})
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("load job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_job_failed"})
		return
	}

	if job.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if job.Status != models.JobStatusAwaitingUpload {
		c.JSON(http.StatusConflict, gin.H{"error": "already_confirmed", "status": string(job.Status)})
		return
	}

	if err := h.jobs.SetStatus(c.Request.Context(), jobID, models.JobStatusPending); err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("mark pending failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm_failed"})
		return
	}
	job.Status = models.JobStatusPending

	readURL, err := h.store.PresignedReadURL(c.Request.Context(), h.cfg.Storage.BucketStaging, job.FileName, h.cfg.Storage.ReadURLTTL)
	if err != nil {
		// Job is pending; recovery or the stale sweep will re-admit it.
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("presign read failed, job left for recovery")
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID, "status": string(job.Status)})
		return
	}
	job.URL = readURL

	h.batcher.Enqueue(job)

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"status": string(job.Status),
	})
}

func buildObjectKey(jobID, fileName string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	ext := path.Ext(fileName)
	return path.Join(datePrefix, fmt.Sprintf("%s%s", jobID, ext))
}
