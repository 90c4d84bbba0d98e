package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// s3API is the subset of the S3 client the archiver uses
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Archiver stores PDFs in any S3-compatible bucket (AWS S3, MinIO, RustFS)
type S3Archiver struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

// S3Option is a functional option for configuring S3Archiver
type S3Option func(*S3Archiver)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(a *S3Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// withClient replaces the S3 client
func withClient(c s3API) S3Option {
	return func(a *S3Archiver) { a.client = c }
}

// NewS3Archiver creates an archiver from configuration. Static credentials
// are used when both keys are set; otherwise the default AWS chain applies.
func NewS3Archiver(ctx context.Context, cfg *config.ArchiveConfig, opts ...S3Option) (*S3Archiver, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("archive access key and secret key must be set together")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	a := &S3Archiver{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client != nil {
		return a, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	a.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return a, nil
}

// Backend implements Archiver
func (a *S3Archiver) Backend() string { return "s3" }

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive uploads the PDF under {prefix}/{year}/{month}/{uuid}_{filename}
func (a *S3Archiver) Archive(ctx context.Context, entry Entry) (*Result, error) {
	if len(entry.PDF) == 0 {
		return nil, errors.New("PDF data is empty")
	}
	if entry.Filename == "" {
		return nil, errors.New("filename is required")
	}

	key := objectKey(a.prefix, entry)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(entry.PDF),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", entry.Filename)),
		Metadata:           map[string]string{"quote-number": entry.QuoteNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	a.logger.Info("PDF archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.String("quote_number", entry.QuoteNumber),
		zap.Int("size", len(entry.PDF)))

	return &Result{Location: "s3://" + a.bucket + "/" + key, Size: int64(len(entry.PDF))}, nil
}

// Ensure S3Archiver implements Archiver
var _ Archiver = (*S3Archiver)(nil)
