package audit

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores a batch of expired entries somewhere durable before the
// retention job deletes them.
type Archiver interface {
	Archive(ctx context.Context, entries []*Entry) error
}

// S3Archiver writes expired entry batches to S3 as gzipped NDJSON objects
// keyed by archival time.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiverConfig configures the S3 archiver.
type S3ArchiverConfig struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the S3 endpoint for S3-compatible stores (MinIO
	// and friends). Empty uses AWS.
	Endpoint string

	// Static credentials; empty falls back to the default AWS chain.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Archiver creates an S3 archiver.
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Archive uploads one batch as a gzipped NDJSON object.
func (a *S3Archiver) Archive(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	data, err := Encode(entries, ExportFormatNDJSON)
	if err != nil {
		return fmt.Errorf("failed to encode archive batch: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("failed to compress archive batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive batch: %w", err)
	}

	key := fmt.Sprintf("%saccess-log/%s-%s.ndjson.gz",
		a.prefix,
		time.Now().UTC().Format("2006/01/02/150405"),
		entries[0].ID,
	)
	contentType := "application/x-ndjson"
	contentEncoding := "gzip"

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          &a.bucket,
		Key:             &key,
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     &contentType,
		ContentEncoding: &contentEncoding,
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive object %s: %w", key, err)
	}
	return nil
}
