package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3Storage_PublicURLRoundTrip(t *testing.T) {
	s := &s3Storage{bucket: "videos", publicBase: "https://proj.supabase.co/storage/v1/object/public", logger: testLogger}

	url := s.PublicURL("submissions/u1/f1/x/clip.mp4")
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/videos/submissions/u1/f1/x/clip.mp4", url)

	p, ok := s.PathFromURL(url)
	assert.True(t, ok)
	assert.Equal(t, "submissions/u1/f1/x/clip.mp4", p)
}

func TestS3Storage_PathFromURL(t *testing.T) {
	s := &s3Storage{bucket: "videos", publicBase: "https://cdn.test", logger: testLogger}

	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"plain", "https://cdn.test/videos/results/a.json", "results/a.json", true},
		{"query stripped", "https://cdn.test/videos/results/a.json?token=x", "results/a.json", true},
		{"escaped", "https://cdn.test/videos/results/my%20file.md", "results/my file.md", true},
		{"other bucket", "https://cdn.test/photos/a.png", "", false},
		{"other host", "https://elsewhere.test/videos/a.json", "", false},
		{"bucket root", "https://cdn.test/videos/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.PathFromURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
