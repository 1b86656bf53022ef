package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioFileValidation(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		wantErr  bool
	}{
		{name: "mp3", fileName: "call.mp3", mimeType: "audio/mpeg", size: 1024},
		{name: "wav", fileName: "call.wav", mimeType: "audio/wav", size: 1024},
		{name: "m4a", fileName: "call.m4a", mimeType: "audio/x-m4a", size: 1024},
		{name: "ogg uppercase extension", fileName: "CALL.OGG", mimeType: "audio/ogg", size: 1024},
		{name: "size optional", fileName: "call.mp3", mimeType: "audio/mpeg", size: 0},
		{name: "at the limit", fileName: "call.mp3", mimeType: "audio/mpeg", size: 50 * 1024 * 1024},
		{name: "over the limit", fileName: "call.mp3", mimeType: "audio/mpeg", size: 50*1024*1024 + 1, wantErr: true},
		{name: "disallowed mime", fileName: "call.mp3", mimeType: "application/octet-stream", wantErr: true},
		{name: "disallowed extension", fileName: "call.exe", mimeType: "audio/mpeg", wantErr: true},
		{name: "no extension", fileName: "call", mimeType: "audio/mpeg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AudioFiles.ValidateFile(tt.fileName, tt.mimeType, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFile)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestImageFileValidation(t *testing.T) {
	assert.NoError(t, ImageFiles.ValidateFile("shot.png", "image/png", 1024))
	assert.ErrorIs(t, ImageFiles.ValidateFile("shot.png", "image/png", 11*1024*1024), ErrInvalidFile)
	assert.ErrorIs(t, ImageFiles.ValidateFile("call.mp3", "audio/mpeg", 1024), ErrInvalidFile)
}
