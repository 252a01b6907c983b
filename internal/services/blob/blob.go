package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ettoiadev/williamdiskpizza/internal/config"
)

// ObjectInfo describes a stored object without leaking client types.
type ObjectInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store wraps the MinIO client for the media bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	publicBase string
	useSSL     bool
}

// NewStore creates the storage client and ensures the bucket exists.
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &Store{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
		publicBase: strings.TrimSuffix(cfg.MinIO.PublicBaseURL, "/"),
		useSSL:     cfg.MinIO.UseSSL,
	}

	if err := store.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

func (s *Store) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put uploads bytes to the given path inside the media bucket.
func (s *Store) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Remove deletes a single object.
func (s *Store) Remove(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucketName, path, minio.RemoveObjectOptions{})
}

// RemoveAll deletes the given paths, continuing past individual failures and
// returning the first error encountered.
func (s *Store) RemoveAll(ctx context.Context, paths []string) error {
	var firstErr error
	for _, path := range paths {
		if err := s.Remove(ctx, path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stat returns information about an object.
func (s *Store) Stat(ctx context.Context, path string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, path, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Path:         info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// List returns all objects under a folder prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	objectsCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, ObjectInfo{
			Path:         object.Key,
			Size:         object.Size,
			ContentType:  object.ContentType,
			LastModified: object.LastModified,
		})
	}

	return objects, nil
}

// PublicURL returns the publicly addressable URL for a path.
func (s *Store) PublicURL(path string) string {
	if s.publicBase != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucketName, path)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(s.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucketName, path)
}

// PathFromURL recovers the object path from a public URL produced by
// PublicURL. Returns false when the URL does not point into the bucket.
func (s *Store) PathFromURL(url string) (string, bool) {
	marker := "/" + s.bucketName + "/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", false
	}

	path := url[idx+len(marker):]
	if path == "" {
		return "", false
	}
	return path, true
}
