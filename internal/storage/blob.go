package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BlobStore wraps the GCS client for the two invoice buckets.
type BlobStore struct {
	client *storage.Client
	logger *zap.Logger
}

func NewBlobStore(ctx context.Context, credentialsPath string, logger *zap.Logger) (*BlobStore, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &BlobStore{client: client, logger: logger}, nil
}

// Exists reports whether an object is present in the bucket.
func (s *BlobStore) Exists(ctx context.Context, bucket, object string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object %q: %w", object, err)
	}
	return true, nil
}

// Upload writes the reader into the bucket and returns the byte count.
func (s *BlobStore) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (int64, error) {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	size, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return 0, fmt.Errorf("failed to write object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize object %q: %w", object, err)
	}

	return size, nil
}

// Download opens the object for reading and returns its content type.
// The caller owns the returned ReadCloser.
func (s *BlobStore) Download(ctx context.Context, bucket, object string) (io.ReadCloser, string, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object %q: %w", object, err)
	}
	return r, r.Attrs.ContentType, nil
}

// DownloadBytes reads a whole object into memory.
func (s *BlobStore) DownloadBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	r, _, err := s.Download(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", object, err)
	}
	return data, nil
}

// DeleteIfExists removes an object, reporting whether it was present.
func (s *BlobStore) DeleteIfExists(ctx context.Context, bucket, object string) (bool, error) {
	err := s.client.Bucket(bucket).Object(object).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete object %q: %w", object, err)
	}
	return true, nil
}

// ListObjects lists object names in the bucket, optionally filtered by a
// name suffix such as ".json".
func (s *BlobStore) ListObjects(ctx context.Context, bucket, suffix string) ([]string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, nil)

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %q: %w", bucket, err)
		}
		if suffix == "" || strings.HasSuffix(attrs.Name, suffix) {
			names = append(names, attrs.Name)
		}
	}

	return names, nil
}

// SignedURL issues a V4 GET URL for the object, valid for ttl.
func (s *BlobStore) SignedURL(bucket, object string, ttl time.Duration) (string, time.Time, error) {
	expires := time.Now().Add(ttl)
	url, err := s.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign URL for %q: %w", object, err)
	}
	return url, expires, nil
}

func (s *BlobStore) Close() error {
	return s.client.Close()
}
