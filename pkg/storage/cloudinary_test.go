package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712/announcements/17-poster.webp": "announcements/17-poster",
		"https://res.cloudinary.com/demo/image/upload/announcements/17-poster.webp":      "announcements/17-poster",
		"https://res.cloudinary.com/demo/image/upload/videos/clip.mp4":                   "videos/clip",
		"https://example.com/no-upload-segment.png":                                      "",
		"https://res.cloudinary.com/demo/image/upload/":                                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, PublicID(in), in)
	}
}

func TestIsRasterImage(t *testing.T) {
	require.True(t, isRasterImage("poster.PNG"))
	require.False(t, isRasterImage("notes.pdf"))
}
