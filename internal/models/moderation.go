package models

import "time"

// BlockedHash is an append-only record of a content hash confirmed unsafe.
// Rows are never updated or deleted by the pipeline.
type BlockedHash struct {
	HashValue    string
	HashType     string
	DetectedType string
	SourceType   string
	DetectedBy   string
	FileKey      string
	CreatedAt    time.Time
}

// MediaItem is the permanent metadata record for approved content.
type MediaItem struct {
	ID               string
	JobID            string
	UserID           string
	Bucket           string
	ObjectKey        string
	MimeType         string
	SizeBytes        int64
	Width            int
	Height           int
	DurationSeconds  float64
	SHA256Hash       string
	LinkedToID       string
	LinkedToType     string
	ModerationStatus string
	CreatedAt        time.Time
}

const ModerationStatusApproved = "approved"

type AuditEvent struct {
	ID        string
	Type      string
	JobID     string
	Class     string
	Message   string
	Details   map[string]any
	CreatedAt time.Time
}
