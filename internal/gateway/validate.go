package gateway

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileClass groups the validation rules for one kind of upload.
type FileClass struct {
	MimeTypes  map[string]struct{}
	Extensions map[string]struct{}
	MaxBytes   int64
}

// AudioFiles is the allow-list for call recordings.
var AudioFiles = FileClass{
	MimeTypes: setOf(
		"audio/mpeg", "audio/mp3", "audio/wav", "audio/wave", "audio/x-wav",
		"audio/mp4", "audio/x-m4a", "audio/webm", "audio/ogg",
	),
	Extensions: setOf(".mp3", ".wav", ".m4a", ".mp4", ".webm", ".ogg"),
	MaxBytes:   50 * 1024 * 1024,
}

// ImageFiles is the allow-list for attachment screenshots.
var ImageFiles = FileClass{
	MimeTypes:  setOf("image/png", "image/jpeg", "image/webp"),
	Extensions: setOf(".png", ".jpg", ".jpeg", ".webp"),
	MaxBytes:   10 * 1024 * 1024,
}

// ValidateFile checks MIME type, extension and size against the class
// allow-list. A sizeBytes of zero skips the size check (size is optional at
// upload-URL time).
func (c FileClass) ValidateFile(fileName, mimeType string, sizeBytes int64) error {
	if _, ok := c.MimeTypes[strings.ToLower(mimeType)]; !ok {
		return fmt.Errorf("%w: mime type %q not allowed", ErrInvalidFile, mimeType)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := c.Extensions[ext]; !ok {
		return fmt.Errorf("%w: extension %q not allowed", ErrInvalidFile, ext)
	}
	if sizeBytes > 0 && sizeBytes > c.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidFile, sizeBytes, c.MaxBytes)
	}
	return nil
}

func setOf(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
