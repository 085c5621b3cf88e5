package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"storefront_backend/pkg/config"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore is the subset of the S3 API the uploader needs.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader stores store assets in a Cloudflare R2 bucket.
type Uploader struct {
	client  ObjectStore
	bucket  string
	cdnBase string
}

// NewUploader builds an R2 client from cfg. It returns ErrNotConfigured when
// credentials or the bucket are missing.
func NewUploader(ctx context.Context, cfg config.R2Config) (*Uploader, error) {
	if cfg.AccountID == "" || cfg.AccessKey == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	cdnBase := cfg.CDNBase
	if cdnBase == "" {
		cdnBase = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}
	return NewUploaderWithClient(client, cfg.Bucket, cdnBase), nil
}

func NewUploaderWithClient(client ObjectStore, bucket, cdnBase string) *Uploader {
	return &Uploader{client: client, bucket: bucket, cdnBase: strings.TrimSuffix(cdnBase, "/")}
}

type UploadResult struct {
	URL       string `json:"url"`
	ObjectKey string `json:"object_key"`
}

// UploadStoreLogo writes a logo under stores/<slug>/logo/ with a unique name.
func (u *Uploader) UploadStoreLogo(ctx context.Context, storeSlug string, body io.Reader, ext, contentType string) (UploadResult, error) {
	uniqueID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())
	objectKey := path.Join("stores", slug.Make(storeSlug), "logo", uniqueID+ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("could not upload file to R2: %w", err)
	}

	return UploadResult{
		URL:       u.cdnBase + "/" + objectKey,
		ObjectKey: objectKey,
	}, nil
}

// Delete removes an object previously returned by an upload. URLs outside
// the CDN base are ignored.
func (u *Uploader) Delete(ctx context.Context, fullURL string) error {
	objectKey, ok := u.ObjectKeyFromURL(fullURL)
	if !ok {
		return nil
	}

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("could not delete file from R2: %w", err)
	}
	return nil
}

func (u *Uploader) ObjectKeyFromURL(fullURL string) (string, bool) {
	prefix := u.cdnBase + "/"
	if !strings.HasPrefix(fullURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(fullURL, prefix), true
}
