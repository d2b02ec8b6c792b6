package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// S3FileStore stores files in a bucket under uuid-derived keys.
type S3FileStore struct {
	client       *s3.Client
	bucket       string
	region       string
	baseEndpoint string
	log          *zap.SugaredLogger
}

type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

func NewS3FileStore(ctx context.Context, cfg S3Config, log *zap.SugaredLogger) (*S3FileStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3FileStore{
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		baseEndpoint: cfg.BaseEndpoint,
		log:          log,
	}, nil
}

// Upload puts the object under a fresh uuid key, keeping the original
// extension, and returns its public URL.
func (s *S3FileStore) Upload(ctx context.Context, data []byte, contentType, originalName string) (string, error) {
	key := uuid.NewString()
	if ext := path.Ext(originalName); ext != "" {
		key += ext
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return s.publicURL(key), nil
}

// Delete removes the object behind fileURL. Errors are logged and
// swallowed: blob cleanup must never fail the caller's request.
func (s *S3FileStore) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}

	key, err := s.keyFromURL(fileURL)
	if err != nil {
		s.log.Warnw("s3 delete: unparsable url", "url", fileURL, "error", err)
		return nil
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Warnw("s3 delete failed", "key", key, "error", err)
	}
	return nil
}

func (s *S3FileStore) publicURL(key string) string {
	if s.baseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.baseEndpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3FileStore) keyFromURL(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", err
	}
	key := strings.TrimPrefix(u.Path, "/")
	// Path-style URLs carry the bucket as the first segment.
	key = strings.TrimPrefix(key, s.bucket+"/")
	if key == "" {
		return "", fmt.Errorf("empty object key in %q", fileURL)
	}
	return key, nil
}
