// Package archive writes immutable snapshots of committed profiles to
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonathan/resume-review/internal/types"
)

// Config holds the object storage settings. An empty Bucket disables archiving.
type Config struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// Enabled reports whether a bucket is configured
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores one object per committed profile version
type S3 struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// Nop discards everything; used when no bucket is configured
type Nop struct{}

// Put does nothing
func (Nop) Put(context.Context, *types.Profile) error { return nil }

// NewS3 builds an archive from cfg. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain. A custom endpoint (MinIO)
// switches to path-style addressing.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.regionOrDefault())}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

func (c Config) regionOrDefault() string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}

// Key returns the object key for one version of a profile
func Key(profile *types.Profile, at time.Time) string {
	return path.Join("profiles", profile.OwnerID, profile.ID, fmt.Sprintf("%d.json", at.UnixNano()))
}

// Put uploads profile as a new object; existing versions are never overwritten
func (a *S3) Put(ctx context.Context, profile *types.Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	key := Key(profile, a.now())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive profile %s: %w", profile.ID, err)
	}
	return nil
}
