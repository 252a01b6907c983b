package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ettoiadev/williamdiskpizza/internal/config"
	"github.com/ettoiadev/williamdiskpizza/internal/services/blob"
	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// ObjectStore is the slice of the blob store the pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error)
	PublicURL(path string) string
	PathFromURL(url string) (string, bool)
}

// RecordStore persists media metadata rows.
type RecordStore interface {
	CreateMedia(ctx context.Context, in storage.MediaInput) (*types.MediaFile, error)
	GetMediaByID(ctx context.Context, id string) (*types.MediaFile, error)
	ListMediaURLs(ctx context.Context) ([]string, error)
	DeleteMedia(ctx context.Context, id string) error
}

// ValidationError rejects a file before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// File is a client-supplied upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type UploadOptions struct {
	Folder     string
	CustomName string
	AltText    string
}

// Service turns client files into durable, publicly addressable media rows.
// The object upload and the row insert are not transactional: a failed
// insert triggers a best-effort compensating delete of the object, and the
// reconcile pass sweeps any orphans that slip through.
type Service struct {
	store         ObjectStore
	records       RecordStore
	maxFileSize   int64
	allowedTypes  []string
	maxConcurrent int
}

func NewService(store ObjectStore, records RecordStore, cfg config.Upload) *Service {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Service{
		store:         store,
		records:       records,
		maxFileSize:   cfg.MaxFileSize,
		allowedTypes:  cfg.AllowedMimeTypes,
		maxConcurrent: maxConcurrent,
	}
}

// Validate checks size and MIME type locally.
func (s *Service) Validate(file File) error {
	if file.Size > s.maxFileSize {
		return &ValidationError{
			Reason: fmt.Sprintf("file too large, maximum is %dMB", s.maxFileSize/1024/1024),
		}
	}

	for _, allowed := range s.allowedTypes {
		if file.ContentType == allowed {
			return nil
		}
	}

	return &ValidationError{
		Reason: fmt.Sprintf("file type %s is not allowed", file.ContentType),
	}
}

// Upload runs the pipeline: validate, put object, insert row. On insert
// failure the object is removed best-effort and the insert error returned.
func (s *Service) Upload(ctx context.Context, file File, opts UploadOptions) (*types.MediaFile, error) {
	if err := s.Validate(file); err != nil {
		return nil, err
	}

	path := s.objectPath(file.Name, opts)

	if err := s.store.Put(ctx, path, file.Content, file.Size, file.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	url := s.store.PublicURL(path)

	record, err := s.records.CreateMedia(ctx, storage.MediaInput{
		Name:    filepath.Base(path),
		URL:     url,
		Type:    file.ContentType,
		Size:    file.Size,
		AltText: opts.AltText,
	})
	if err != nil {
		if removeErr := s.store.Remove(ctx, path); removeErr != nil {
			slog.Error("Failed to remove orphaned object after insert failure",
				slog.String("path", path),
				slog.String("error", removeErr.Error()))
		}
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	return record, nil
}

// UploadMany runs Upload for each file concurrently, bounded by the
// configured limit. Any individual failure is reported as an aggregate
// count; files that already uploaded are not rolled back.
func (s *Service) UploadMany(ctx context.Context, files []File, opts UploadOptions) ([]types.MediaFile, error) {
	results := make([]*types.MediaFile, len(files))
	var failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, file := range files {
		g.Go(func() error {
			record, err := s.Upload(gctx, file, opts)
			if err != nil {
				slog.Error("Batch upload item failed",
					slog.String("name", file.Name),
					slog.String("error", err.Error()))
				failures.Add(1)
				return nil
			}
			results[i] = record
			return nil
		})
	}

	g.Wait()

	if n := failures.Load(); n > 0 {
		return nil, fmt.Errorf("%d file(s) failed to upload", n)
	}

	records := make([]types.MediaFile, 0, len(results))
	for _, record := range results {
		records = append(records, *record)
	}

	return records, nil
}

// Delete removes the object and then the row. A storage failure is logged
// and does not block the row delete, so an unreachable object never pins
// its metadata.
func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.records.GetMediaByID(ctx, id)
	if err != nil {
		return err
	}

	if path, ok := s.store.PathFromURL(record.URL); ok {
		if err := s.store.Remove(ctx, path); err != nil {
			slog.Warn("Failed to delete storage object, removing row anyway",
				slog.String("media_id", id),
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	} else {
		slog.Warn("Media URL does not resolve to a storage path",
			slog.String("media_id", id),
			slog.String("url", record.URL))
	}

	return s.records.DeleteMedia(ctx, id)
}

// reconcileGrace keeps the sweeper away from objects that may belong to an
// upload whose row insert has not landed yet.
const reconcileGrace = time.Hour

// ReconcileOrphans deletes objects that no media row references. Returns
// the number of objects removed.
func (s *Service) ReconcileOrphans(ctx context.Context) (int, error) {
	urls, err := s.records.ListMediaURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list media rows: %w", err)
	}

	referenced := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if path, ok := s.store.PathFromURL(url); ok {
			referenced[path] = struct{}{}
		}
	}

	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list storage objects: %w", err)
	}

	removed := 0
	for _, object := range objects {
		if _, ok := referenced[object.Path]; ok {
			continue
		}
		if time.Since(object.LastModified) < reconcileGrace {
			continue
		}

		if err := s.store.Remove(ctx, object.Path); err != nil {
			slog.Error("Failed to remove orphaned object",
				slog.String("path", object.Path),
				slog.String("error", err.Error()))
			continue
		}

		slog.Info("Removed orphaned object", slog.String("path", object.Path))
		removed++
	}

	return removed, nil
}

// objectPath builds the destination path. Timestamp-based names keep paths
// collision-resistant unless the caller supplies a stable custom name.
func (s *Service) objectPath(originalName string, opts UploadOptions) string {
	ext := filepath.Ext(originalName)

	var name string
	if opts.CustomName != "" {
		name = sanitizeName(opts.CustomName) + ext
	} else {
		name = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeName(originalName))
	}

	if opts.Folder != "" {
		return strings.Trim(opts.Folder, "/") + "/" + name
	}
	return name
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
