package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassForMime(t *testing.T) {
	tests := []struct {
		mime  string
		class MediaClass
		ok    bool
	}{
		{"image/jpeg", ClassImages, true},
		{"image/png", ClassImages, true},
		{"video/mp4", ClassVideos, true},
		{"video/webm", ClassVideos, true},
		{"application/pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		class, ok := ClassForMime(tt.mime)
		assert.Equal(t, tt.ok, ok, tt.mime)
		assert.Equal(t, tt.class, class, tt.mime)
	}
}

func TestMediaClassValid(t *testing.T) {
	assert.True(t, ClassImages.Valid())
	assert.True(t, ClassVideos.Valid())
	assert.False(t, MediaClass("audio").Valid())
	assert.False(t, MediaClass("").Valid())
}
