package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListMedia(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	items, err := h.media.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]interface{}{
			"id":               item.ID,
			"jobId":            item.JobID,
			"userId":           item.UserID,
			"bucket":           item.Bucket,
			"objectKey":        item.ObjectKey,
			"mimeType":         item.MimeType,
			"sizeBytes":        item.SizeBytes,
			"moderationStatus": item.ModerationStatus,
			"createdAt":        item.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": out,
	})
}
