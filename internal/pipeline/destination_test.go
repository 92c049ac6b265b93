package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestinationMapping(t *testing.T) {
	layout := testLayout()

	tests := []struct {
		name         string
		linkedToType string
		key          string
		wantBucket   string
		wantKey      string
	}{
		{"mapped sharded category", "post", "2026/08/24/x.jpg", "content", "post/2026/08/24/x.jpg"},
		{"mapped flat category", "avatar", "2026/08/24/x.jpg", "profile", "2026/08/24/x.jpg"},
		{"unmapped category falls back sharded", "listing", "x.jpg", "media", "listing/x.jpg"},
		{"empty category stays flat in default", "", "x.jpg", "media", "x.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key := layout.Destination(tt.linkedToType, tt.key)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
