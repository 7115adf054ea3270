package db

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keyline/keyline/pkg/request"
	"github.com/keyline/keyline/pkg/trace"
)

// S3Config holds the connection settings of an S3 benchmark target.
type S3Config struct {
	// Region is the AWS region of the bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack,
	// etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
	// Prefix is prepended to every object name.
	Prefix string
}

// DefaultS3Config returns the default S3 settings.
func DefaultS3Config() S3Config {
	return S3Config{Region: "us-east-1", Prefix: "keyline/"}
}

// S3DB drives an S3-compatible object store. Each record is one
// object; the key is encoded as 16 zero-padded hex digits so the
// bucket's lexicographic listing order matches the numeric key order
// and scans can use ListObjectsV2.
type S3DB struct {
	client *s3.Client
	bucket string
	cfg    S3Config
	ctx    context.Context
}

// NewS3DB creates a client for the given bucket. The context bounds
// every request the benchmark issues.
func NewS3DB(ctx context.Context, bucket string, cfg S3Config) (*S3DB, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("db: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3DB{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: bucket,
		cfg:    cfg,
		ctx:    ctx,
	}, nil
}

func (s *S3DB) objectName(key request.Key) string {
	return fmt.Sprintf("%s%016x", s.cfg.Prefix, uint64(key))
}

func (s *S3DB) keyFromObjectName(name string) (request.Key, error) {
	hex := name[len(s.cfg.Prefix):]
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("db: malformed object name %q: %w", name, err)
	}
	return request.Key(v), nil
}

// InitializeDatabase implements Database. It verifies the bucket is
// reachable.
func (s *S3DB) InitializeDatabase() error {
	_, err := s.client.HeadBucket(s.ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("db: failed to reach bucket %q: %w", s.bucket, err)
	}
	return nil
}

// InitializeWorker implements Database.
func (s *S3DB) InitializeWorker(threadID int) {}

// ShutdownWorker implements Database.
func (s *S3DB) ShutdownWorker(threadID int) {}

// ShutdownDatabase implements Database.
func (s *S3DB) ShutdownDatabase() error { return nil }

func (s *S3DB) put(key request.Key, value []byte) error {
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectName(key)),
		Body:   bytes.NewReader(value),
	})
	return err
}

// BulkLoad implements Database. S3 has no bulk path, so the load is a
// sequence of puts.
func (s *S3DB) BulkLoad(load *trace.BulkLoadTrace) error {
	for _, req := range load.Requests() {
		if err := s.put(req.Key, req.Value); err != nil {
			return fmt.Errorf("db: failed to bulk load key %#x: %w", uint64(req.Key), err)
		}
	}
	return nil
}

// Read implements Database.
func (s *S3DB) Read(key request.Key) ([]byte, bool) {
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectName(key)),
	})
	if err != nil {
		return nil, false
	}
	defer out.Body.Close()
	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Insert implements Database.
func (s *S3DB) Insert(key request.Key, value []byte) bool {
	return s.put(key, value) == nil
}

// Update implements Database. S3 puts are upserts; an update of an
// absent key fails to preserve the read-your-writes accounting.
func (s *S3DB) Update(key request.Key, value []byte) bool {
	if !s.exists(key) {
		return false
	}
	return s.put(key, value) == nil
}

func (s *S3DB) exists(key request.Key) bool {
	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectName(key)),
	})
	return err == nil
}

// Delete implements Database.
func (s *S3DB) Delete(key request.Key) bool {
	if !s.exists(key) {
		return false
	}
	_, err := s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectName(key)),
	})
	return err == nil
}

// Scan implements Database. The listing starts just before the first
// candidate key so the start key itself is included.
func (s *S3DB) Scan(start request.Key, amount uint32) ([]KV, bool) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.cfg.Prefix),
		MaxKeys: aws.Int32(int32(amount)),
	}
	if start > 0 {
		input.StartAfter = aws.String(s.objectName(start - 1))
	}
	listing, err := s.client.ListObjectsV2(s.ctx, input)
	if err != nil {
		return nil, false
	}

	out := make([]KV, 0, amount)
	for _, obj := range listing.Contents {
		key, err := s.keyFromObjectName(aws.ToString(obj.Key))
		if err != nil {
			return nil, false
		}
		value, ok := s.Read(key)
		if !ok {
			return nil, false
		}
		out = append(out, KV{Key: key, Value: value})
		if uint32(len(out)) == amount {
			break
		}
	}
	return out, true
}
