package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	client     *s3.Client
	bucketName string
	logger     *slog.Logger
}

// NewR2Storage builds an S3 client pointed at the account's R2 endpoint.
func NewR2Storage(cfg R2Config, logger *slog.Logger) (*R2Storage, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("r2 storage: bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, fmt.Errorf("r2 storage: account id is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	logger.Info("initialized R2 storage", "bucket", cfg.BucketName, "endpoint", endpoint)

	return &R2Storage{client: client, bucketName: cfg.BucketName, logger: logger}, nil
}

func (s *R2Storage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if !validKey(key) {
		return &StorageError{Op: "put", Key: key, Err: ErrInvalidKey}
	}
	if !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return &StorageError{Op: "put", Key: key, Err: err}
		}
		if exists {
			return &StorageError{Op: "put", Key: key, Err: ErrKeyExists}
		}
	}

	// Buffer so the size check happens before anything is uploaded and
	// the SDK gets a seekable body for signing.
	src := data
	if opts.MaxSize > 0 {
		src = io.LimitReader(data, opts.MaxSize+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("read body: %w", err)}
	}
	if opts.MaxSize > 0 && int64(len(body)) > opts.MaxSize {
		return &StorageError{Op: "put", Key: key, Err: ErrTooLarge}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(DetectContentType(opts.ContentType, key)),
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.wrapError("put", key, err)
	}

	s.logger.Debug("stored object in R2", "key", key, "size", len(body))
	return nil
}

func (s *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if !validKey(key) {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: ErrInvalidKey}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, s.wrapError("get", key, err)
	}

	info := ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	if info.ContentType == "" {
		info.ContentType = DetectContentType("", key)
	}
	return out.Body, info, nil
}

func (s *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, &StorageError{Op: "exists", Key: key, Err: ErrInvalidKey}
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFound(s.wrapError("exists", key, err)) {
			return false, nil
		}
		return false, s.wrapError("exists", key, err)
	}
	return true, nil
}

// wrapError maps S3 errors onto the package sentinels.
func (s *R2Storage) wrapError(op, key string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return &StorageError{Op: op, Key: key, Err: ErrNotFound}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return &StorageError{Op: op, Key: key, Err: ErrNotFound}
		case "AccessDenied", "Forbidden":
			return &StorageError{Op: op, Key: key, Err: ErrAccessDenied}
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return &StorageError{Op: op, Key: key, Err: ErrNotFound}
		case http.StatusForbidden:
			return &StorageError{Op: op, Key: key, Err: ErrAccessDenied}
		}
	}

	return &StorageError{Op: op, Key: key, Err: err}
}
