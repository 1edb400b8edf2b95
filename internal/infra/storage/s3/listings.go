package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"xrent/internal/app/policies"
	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
	"xrent/internal/infra/storage/seed"
)

// maxObjectSize bounds how much of the listings object is read.
const maxObjectSize = 8 << 20

var ErrObjectMissing = errors.New("s3: listings object not found")

// ListingSource reads the listing catalog from a JSON object in an
// S3-compatible bucket, in the same format as the fixtures file.
type ListingSource struct {
	bucket         string
	object         string
	client         *minio.Client
	tokens         *tokens.Registry
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewListingSource configures a source using the provided endpoint and credentials.
func NewListingSource(endpoint string, useSSL bool, accessKey, secretKey, bucket, object string, registry *tokens.Registry, logger *slog.Logger) (*ListingSource, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if object = strings.Trim(strings.TrimSpace(object), "/"); object == "" {
		return nil, errors.New("s3: object key is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), opts)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingSource{
		bucket: bucket,
		object: object,
		client: minioClient,
		tokens: registry,
		logger: logger,
	}, nil
}

// FetchListings downloads and decodes the listings object.
func (s *ListingSource) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(err)
	}
	defer obj.Close()

	listings, err := decodeObject(obj, s.tokens, s.logger)
	if err != nil {
		return nil, s.mapError(err)
	}
	s.logger.Info("listings fetched from object storage", "bucket", s.bucket, "object", s.object, "count", len(listings))
	return listings, nil
}

// Publish stores raw fixture data as the listings object, creating the
// bucket when needed. Used to bootstrap an empty bucket.
func (s *ListingSource) Publish(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return seed.ErrEmpty
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	s.logger.Info("listings object published", "bucket", s.bucket, "object", s.object, "bytes", len(data))
	return nil
}

func (s *ListingSource) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

func (s *ListingSource) mapError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s/%s", ErrObjectMissing, s.bucket, s.object)
	}
	return fmt.Errorf("s3: read %s/%s: %w", s.bucket, s.object, err)
}

func decodeObject(r io.Reader, registry *tokens.Registry, logger *slog.Logger) ([]*domainlistings.Listing, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxObjectSize))
	if err != nil {
		return nil, err
	}
	return seed.Decode(data, registry, logger)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ListingSource = (*ListingSource)(nil)
