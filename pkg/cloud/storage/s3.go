// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

const s3PartSize = int64(64 * 1024 * 1024)

// S3Storage implements Storage for AWS S3 and S3-compatible stores.
type S3Storage struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	cfg        *Config
}

// NewS3Storage creates a new S3 storage backend.
func NewS3Storage(ctx context.Context, cfg *Config) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Explicit credentials take precedence
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecretKey,
				cfg.AWSSessionToken,
			),
		))
	} else if cfg.AWSProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.AWSProfile))
	}

	if cfg.MaxRetries > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AWSAssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AWSAssumeRoleARN)
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = s3PartSize
		u.Concurrency = 5
	})
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = s3PartSize
		d.Concurrency = 5
	})

	return &S3Storage{
		client:     client,
		uploader:   uploader,
		downloader: downloader,
		bucket:     cfg.Bucket,
		cfg:        cfg,
	}, nil
}

// isNotFound reports whether err is S3's answer for a missing key.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}

func (s *S3Storage) wrap(key string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
	}
	return fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
}

// Upload uploads data from a reader to S3. The manager splits large bodies
// into multipart uploads.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, opts *UploadOptions) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}

	if opts != nil {
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if opts.ACL != "" {
			input.ACL = types.ObjectCannedACL(opts.ACL)
		}
		if opts.ProgressFunc != nil {
			input.Body = &progressReader{reader: reader, total: size, progressFunc: opts.ProgressFunc}
		}
	}

	if size > s3PartSize {
		_, err := s.uploader.Upload(ctx, input)
		return s.wrap(key, err)
	}
	_, err := s.client.PutObject(ctx, input)
	return s.wrap(key, err)
}

// UploadFile uploads a local file to S3.
func (s *S3Storage) UploadFile(ctx context.Context, key string, localPath string, opts *UploadOptions) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	return s.Upload(ctx, key, f, info.Size(), opts)
}

// Download downloads data from S3 to a writer.
func (s *S3Storage) Download(ctx context.Context, key string, writer io.Writer, opts *DownloadOptions) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.wrap(key, err)
	}
	defer result.Body.Close()

	var reader io.Reader = result.Body
	if opts != nil && opts.ProgressFunc != nil {
		total := aws.ToInt64(result.ContentLength)
		if result.ContentLength == nil {
			total = -1
		}
		reader = &progressReader{reader: result.Body, total: total, progressFunc: opts.ProgressFunc}
	}

	_, err = io.Copy(writer, reader)
	return err
}

// DownloadFile downloads from S3 to a local file using ranged parallel gets.
func (s *S3Storage) DownloadFile(ctx context.Context, key string, localPath string, _ *DownloadOptions) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	_, err = s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return s.wrap(key, err)
}

// Exists checks if an object exists in S3.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, s.wrap(key, err)
}

// Provider returns the storage provider type.
func (*S3Storage) Provider() Provider {
	return ProviderS3
}

// Bucket returns the bucket name.
func (s *S3Storage) Bucket() string {
	return s.bucket
}

// Close releases any resources.
func (*S3Storage) Close() error {
	return nil
}
