package audit

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config configures the S3-backed trail.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses the default chain if
	// empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible providers.
	UsePathStyle bool
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New("audit: S3 bucket is required")
	}
	return nil
}

// S3Trail appends audit records into a Lode dataset backed by S3 storage,
// partitioned by day and extension the same way FileTrail is.
type S3Trail struct {
	dataset lode.Dataset
}

// NewS3Trail creates an S3Trail using the AWS SDK's default credential
// chain (env vars, shared config, IAM role).
func NewS3Trail(ctx context.Context, cfg S3Config) (*S3Trail, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("audit: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	s3Client := s3.NewFromConfig(awsCfg, s3Opts...)

	factory := func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	}

	ds, err := newTrailDataset(factory)
	if err != nil {
		return nil, err
	}
	return &S3Trail{dataset: ds}, nil
}

func (t *S3Trail) Record(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.dataset.Write(ctx, []any{recordMap(rec)}, lode.Metadata{}); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	return nil
}

func (t *S3Trail) Close() error { return nil }

var _ Trail = (*S3Trail)(nil)
