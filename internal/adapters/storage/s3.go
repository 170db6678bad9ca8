// Package storage keeps QR code images and other artifacts behind a URL.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"visitorpass/internal/domain"
)

// S3Config holds configuration for the S3 artifact store.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL, when set, replaces the virtual-hosted bucket URL (e.g. a CDN in front of the bucket).
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewArtifactStore returns an S3-backed store when a bucket is configured, or a store that
// inlines artifacts as data URLs otherwise.
func NewArtifactStore(cfg S3Config) domain.ArtifactStore {
	if cfg.Bucket == "" {
		return dataURLStore{}
	}
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	}
	return newS3Store(s3.NewFromConfig(awsCfg), cfg)
}

func newS3Store(client s3API, cfg S3Config) *s3Store {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &s3Store{client: client, bucket: cfg.Bucket, baseURL: base}
}

func (s *s3Store) Store(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// dataURLStore keeps nothing server-side; the URL carries the payload.
type dataURLStore struct{}

func (dataURLStore) Store(_ context.Context, _ string, payload []byte, contentType string) (string, error) {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(payload), nil
}

func (dataURLStore) Delete(context.Context, string) error { return nil }
