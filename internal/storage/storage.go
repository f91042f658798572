// Package storage puts synthesized audio somewhere addressable by URI. Stores
// never delete; the lifecycle of stored audio is owned by the deployment.
package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// AudioStore persists audio and returns a URI pointing at it.
type AudioStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ObjectKey builds a collision-free key of the form <provider>/<uuid>.<ext>.
func ObjectKey(provider, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return provider + "/" + uuid.NewString() + "." + ext
}

// ContentType maps common audio extensions to MIME types.
func ContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3", "mpeg":
		return "audio/mpeg"
	case "wav", "wave":
		return "audio/wav"
	case "ogg", "ogg_vorbis", "opus":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "aac":
		return "audio/aac"
	case "pcm":
		return "audio/pcm"
	default:
		return "application/octet-stream"
	}
}
