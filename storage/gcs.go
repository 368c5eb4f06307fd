package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

type GCSUploader struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSUploader authenticates with a service account key file. An empty
// path falls back to application default credentials.
func NewGCSUploader(ctx context.Context, bucket, credentialsFile string) (*GCSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	return &GCSUploader{
		client:  client,
		bucket:  bucket,
		baseURL: publicURL(gcsPublicHost, bucket),
	}, nil
}

func (g *GCSUploader) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	name := objectName(folder, fh.Filename)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(fh)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}
	return publicURL(g.baseURL, name), nil
}

func (g *GCSUploader) Delete(ctx context.Context, raw string) error {
	name, err := objectNameFromURL(g.baseURL, raw)
	if err != nil {
		return err
	}
	if err := g.client.Bucket(g.bucket).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (g *GCSUploader) Close() error {
	return g.client.Close()
}
