package models

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusAwaitingUpload JobStatus = "awaiting_upload"
	JobStatusPending        JobStatus = "pending"
	JobStatusComplete       JobStatus = "complete"
)

type MediaClass string

const (
	ClassImages MediaClass = "images"
	ClassVideos MediaClass = "videos"
)

func (c MediaClass) Valid() bool {
	return c == ClassImages || c == ClassVideos
}

// ClassForMime maps a MIME type to its moderation class. Only image/* and
// video/* are scannable; everything else is rejected at upload request time.
func ClassForMime(mime string) (MediaClass, bool) {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return ClassImages, true
	case strings.HasPrefix(mime, "video/"):
		return ClassVideos, true
	default:
		return "", false
	}
}

// MediaJob tracks one uploaded asset from upload request through moderation.
// FileName is the object key in the staging bucket. URL is a time-limited
// read URL handed to the scan backend; it is transient and never persisted
// as the source of truth.
type MediaJob struct {
	ID           string
	UserID       string
	FileName     string
	FileSize     int64
	SHA256Hash   string
	MimeType     string
	LinkedToID   string
	LinkedToType string
	URL          string
	Status       JobStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
