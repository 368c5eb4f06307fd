package storage

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket          string
	Endpoint        string // e.g. https://<account-id>.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicDomain serves the bucket, e.g. https://pub-xxx.r2.dev
	PublicDomain string
}

// S3Uploader writes to Cloudflare R2 or any other S3 compatible store.
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.PublicDomain == "" {
		return nil, fmt.Errorf("missing storage settings (bucket, access key id, secret access key, public domain)")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for R2
		}
	})

	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicURL(cfg.PublicDomain, cfg.Bucket),
	}, nil
}

func (s *S3Uploader) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	key := objectName(folder, fh.Filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType(fh)),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", fh.Filename, err)
	}
	return publicURL(s.baseURL, key), nil
}

func (s *S3Uploader) Delete(ctx context.Context, raw string) error {
	key, err := objectNameFromURL(s.baseURL, raw)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
