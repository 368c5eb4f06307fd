package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader stores user images and hands back their public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
	// Delete removes the object behind a URL previously returned by Upload.
	Delete(ctx context.Context, publicURL string) error
}

var ErrForeignURL = errors.New("url does not belong to this bucket")

// objectName builds a unique key under folder, keeping the file extension.
func objectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	folder = strings.Trim(folder, "/")
	name := fmt.Sprintf("%d-%s%s", time.Now().UTC().Unix(), uuid.NewString(), ext)
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

// publicURL joins base and the object key. base carries scheme and host and
// may carry a path prefix.
func publicURL(base, object string) string {
	return strings.TrimRight(base, "/") + "/" + object
}

// objectNameFromURL strips base from raw. A URL with a different host or
// path prefix is rejected with ErrForeignURL.
func objectNameFromURL(base, raw string) (string, error) {
	b, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}
	if u.Host != b.Host {
		return "", ErrForeignURL
	}
	prefix := strings.TrimRight(b.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", ErrForeignURL
	}
	name := strings.TrimPrefix(u.Path, prefix)
	if name == "" {
		return "", fmt.Errorf("no object path in url")
	}
	return name, nil
}
