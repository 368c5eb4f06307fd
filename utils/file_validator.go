package utils

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

type FileValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

// NewImageValidator accepts the usual web image formats up to maxSizeMB.
func NewImageValidator(maxSizeMB int) *FileValidator {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &FileValidator{
		allowedExt: map[string]bool{
			".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
		},
		allowedMime: map[string]bool{
			"image/jpeg": true, "image/png": true, "image/webp": true, "image/gif": true,
		},
		maxSize: int64(maxSizeMB) << 20,
	}
}

// ValidateFile checks size and extension, then sniffs the first 512 bytes and
// returns the detected MIME type.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("invalid file extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil || n == 0 {
		return "", fmt.Errorf("failed to read file header")
	}

	detectedMime := strings.ToLower(http.DetectContentType(buffer[:n]))
	if !v.allowedMime[detectedMime] {
		return "", fmt.Errorf("invalid file type")
	}

	return detectedMime, nil
}
