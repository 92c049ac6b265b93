package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/models"
)

// VisionBackend calls the low-latency vision endpoint once per image. Used
// for small image batches where per-call overhead beats bulk round-trip
// latency. A per-image failure becomes a verdict with Error set and IsNSFW
// nil, so the orchestrator skips that job instead of failing the batch.
type VisionBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger
}

func NewVisionBackend(endpoint, apiKey string, timeout time.Duration, log zerolog.Logger) *VisionBackend {
	return &VisionBackend{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

type visionRequest struct {
	URL string `json:"url"`
}

type visionResponse struct {
	NSFW   *bool `json:"nsfw"`
	Width  int   `json:"width"`
	Height int   `json:"height"`
}

func (b *VisionBackend) Scan(ctx context.Context, class models.MediaClass, jobs []Job) ([]Verdict, error) {
	verdicts := make([]Verdict, 0, len(jobs))
	for _, job := range jobs {
		verdict, err := b.scanOne(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.log.Warn().Err(err).Str("job_id", job.JobID).Msg("vision scan failed for image")
			verdicts = append(verdicts, Verdict{JobID: job.JobID, Error: err.Error()})
			continue
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, nil
}

func (b *VisionBackend) scanOne(ctx context.Context, job Job) (Verdict, error) {
	body, err := json.Marshal(visionRequest{URL: job.URL})
	if err != nil {
		return Verdict{}, fmt.Errorf("encode vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("vision backend status %d", resp.StatusCode)
	}

	var decoded visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return Verdict{
		JobID:  job.JobID,
		IsNSFW: decoded.NSFW,
		Width:  decoded.Width,
		Height: decoded.Height,
	}, nil
}
