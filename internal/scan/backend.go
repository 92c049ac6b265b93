package scan

import (
	"context"
	"errors"

	"mediavault/internal/models"
)

// Job is one (id, url) pair submitted for scanning. The URL is a time-limited
// read URL into the staging bucket.
type Job struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

// Verdict is the backend's per-job decision. IsNSFW is a pointer so that a
// missing or non-boolean field decodes to nil and is distinguishable from an
// explicit safe verdict; a nil IsNSFW must never be treated as safe.
type Verdict struct {
	JobID    string   `json:"job_id"`
	IsNSFW   *bool    `json:"is_nsfw"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ErrBadResponse marks a structurally invalid backend response (missing or
// non-sequence result list). Treated as retriable by the orchestrator.
var ErrBadResponse = errors.New("scan backend returned malformed response")

type Backend interface {
	Scan(ctx context.Context, class models.MediaClass, jobs []Job) ([]Verdict, error)
}
