package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	infraconfig "github.com/osmap/backend/internal/infrastructure/config"
)

// objectAPI is the subset of the S3 client used by the mirror
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Mirror copies stored documents to an S3-compatible bucket
// (AWS S3, MinIO, RustFS, ...).
type S3Mirror struct {
	client objectAPI
	bucket string
	logger *zap.Logger
}

// S3MirrorOption is a functional option for configuring S3Mirror
type S3MirrorOption func(*S3Mirror)

// WithLogger sets a custom logger for S3Mirror
func WithLogger(logger *zap.Logger) S3MirrorOption {
	return func(m *S3Mirror) {
		m.logger = logger
	}
}

// withObjectAPI replaces the S3 client
func withObjectAPI(api objectAPI) S3MirrorOption {
	return func(m *S3Mirror) {
		m.client = api
	}
}

// NewS3Mirror creates a mirror from storage configuration
func NewS3Mirror(cfg *infraconfig.StorageConfig, opts ...S3MirrorOption) (*S3Mirror, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	m := &S3Mirror{
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.client == nil {
		awsCfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS config: %w", err)
		}
		m.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.UsePathStyle
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return m, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *S3Mirror) EnsureBucket(ctx context.Context) error {
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	m.logger.Info("Creating storage bucket", zap.String("bucket", m.bucket))
	_, err = m.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload puts a document into the bucket
func (m *S3Mirror) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	m.logger.Debug("artifact mirrored",
		zap.String("bucket", m.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

// Bucket returns the bucket name
func (m *S3Mirror) Bucket() string {
	return m.bucket
}

var _ Mirror = (*S3Mirror)(nil)
