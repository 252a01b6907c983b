package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

type fakeReader struct {
	mu           sync.Mutex
	contentCalls int
	sectionCalls int
	settingCalls int
	content      []types.SiteContent
	settings     []types.Setting
	gallery      []types.GalleryItem
	testimonials []types.Testimonial
}

func (f *fakeReader) ListContent(ctx context.Context) ([]types.SiteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentCalls++
	return f.content, nil
}

func (f *fakeReader) ListContentBySection(ctx context.Context, section string) ([]types.SiteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sectionCalls++

	var items []types.SiteContent
	for _, item := range f.content {
		if item.Section == section {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeReader) ListSettings(ctx context.Context) ([]types.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingCalls++
	return f.settings, nil
}

func (f *fakeReader) ListGallery(ctx context.Context, activeOnly bool) ([]types.GalleryItem, error) {
	return f.gallery, nil
}

func (f *fakeReader) ListTestimonials(ctx context.Context, activeOnly bool) ([]types.Testimonial, error) {
	return f.testimonials, nil
}

func heroContent() []types.SiteContent {
	return []types.SiteContent{
		{ID: "1", Section: "hero", Key: "title", Value: json.RawMessage(`"A melhor pizza da cidade"`), Type: types.ContentText},
		{ID: "2", Section: "contact", Key: "phone_primary", Value: json.RawMessage(`"(12) 3951-7565"`), Type: types.ContentText},
	}
}

func TestContentReadThrough(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	reader := &fakeReader{content: heroContent()}
	svc := NewService(reader, redisClient)
	ctx := context.Background()

	first, err := svc.ListContent(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(first))
	}

	second, err := svc.ListContent(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("Expected 2 items from cache, got %d", len(second))
	}

	if reader.contentCalls != 1 {
		t.Fatalf("Expected exactly one storage read, got %d", reader.contentCalls)
	}
}

func TestContentInvalidation(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	reader := &fakeReader{content: heroContent()}
	svc := NewService(reader, redisClient)
	ctx := context.Background()

	if _, err := svc.ListContentBySection(ctx, "hero"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := svc.ListContentBySection(ctx, "hero"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reader.sectionCalls != 1 {
		t.Fatalf("Expected one storage read before invalidation, got %d", reader.sectionCalls)
	}

	svc.InvalidateContent(ctx, "hero")

	if _, err := svc.ListContentBySection(ctx, "hero"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reader.sectionCalls != 2 {
		t.Fatalf("Expected a fresh storage read after invalidation, got %d", reader.sectionCalls)
	}
}

func TestSettingsReadThrough(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	reader := &fakeReader{settings: []types.Setting{
		{Key: "site_name", Value: json.RawMessage(`"William Disk Pizza"`)},
	}}
	svc := NewService(reader, redisClient)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		settings, err := svc.Settings(ctx)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(settings) != 1 || settings[0].Key != "site_name" {
			t.Fatalf("Unexpected settings: %+v", settings)
		}
	}

	if reader.settingCalls != 1 {
		t.Fatalf("Expected one storage read, got %d", reader.settingCalls)
	}

	svc.InvalidateSettings(ctx)
	if _, err := svc.Settings(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reader.settingCalls != 2 {
		t.Fatalf("Expected a fresh read after invalidation, got %d", reader.settingCalls)
	}
}

func TestCacheSurvivesRedisFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	reader := &fakeReader{content: heroContent()}
	svc := NewService(reader, redisClient)

	// A dead Redis degrades to a pass-through, never to an error.
	mr.Close()

	items, err := svc.ListContent(context.Background())
	if err != nil {
		t.Fatalf("Expected pass-through on cache failure, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
}
