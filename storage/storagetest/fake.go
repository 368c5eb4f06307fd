// Package storagetest provides an in-memory storage.Uploader.
package storagetest

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/princinho/videotube/storage"
)

type Uploader struct {
	mu      sync.Mutex
	seq     int
	objects map[string]string

	// Err, when set, is returned by Upload.
	Err error
	// EmptyURL makes Upload succeed without a URL.
	EmptyURL bool
	Deleted  []string
}

var _ storage.Uploader = (*Uploader)(nil)

func NewUploader() *Uploader {
	return &Uploader{objects: make(map[string]string)}
}

func (u *Uploader) Upload(_ context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return "", u.Err
	}
	if u.EmptyURL {
		return "", nil
	}
	u.seq++
	url := fmt.Sprintf("https://cdn.test/%s/%d-%s", folder, u.seq, fh.Filename)
	u.objects[url] = fh.Filename
	return url, nil
}

func (u *Uploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Deleted = append(u.Deleted, url)
	delete(u.objects, url)
	return nil
}

// Has reports whether url is currently stored.
func (u *Uploader) Has(url string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.objects[url]
	return ok
}
