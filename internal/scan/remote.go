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

// RemoteBackend submits whole batches to the bulk moderation endpoint.
type RemoteBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger
}

func NewRemoteBackend(endpoint, apiKey string, timeout time.Duration, log zerolog.Logger) *RemoteBackend {
	return &RemoteBackend{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

type scanRequest struct {
	Class string `json:"class"`
	Jobs  []Job  `json:"jobs"`
}

type scanResponse struct {
	Results *[]Verdict `json:"results"`
}

func (b *RemoteBackend) Scan(ctx context.Context, class models.MediaClass, jobs []Job) ([]Verdict, error) {
	body, err := json.Marshal(scanRequest{Class: string(class), Jobs: jobs})
	if err != nil {
		return nil, fmt.Errorf("encode scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scan backend status %d", resp.StatusCode)
	}

	var decoded scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if decoded.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrBadResponse)
	}

	b.log.Debug().
		Str("class", string(class)).
		Int("submitted", len(jobs)).
		Int("returned", len(*decoded.Results)).
		Msg("bulk scan completed")

	return *decoded.Results, nil
}
