package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// Reader is the slice of the storage surface the public site reads.
type Reader interface {
	ListContent(ctx context.Context) ([]types.SiteContent, error)
	ListContentBySection(ctx context.Context, section string) ([]types.SiteContent, error)
	ListSettings(ctx context.Context) ([]types.Setting, error)
	ListGallery(ctx context.Context, activeOnly bool) ([]types.GalleryItem, error)
	ListTestimonials(ctx context.Context, activeOnly bool) ([]types.Testimonial, error)
}

// Service wraps the public read path with Redis caching. Mutations go
// straight to storage; handlers call the Invalidate helpers afterwards.
type Service struct {
	storage Reader
	redis   *redis.Client
}

func NewService(store Reader, redisClient *redis.Client) *Service {
	return &Service{
		storage: store,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	contentAllKey     = "content:all"
	contentSectionKey = "content:section:%s" // content:section:hero
	settingsKey       = "settings:all"
	galleryKey        = "gallery:active"
	testimonialsKey   = "testimonials:active"
)

// Cache durations
const (
	ContentCacheDuration      = 5 * time.Minute
	SettingsCacheDuration     = time.Hour
	GalleryCacheDuration      = 10 * time.Minute
	TestimonialsCacheDuration = 10 * time.Minute
)

// ListContent returns all site content, cached.
func (c *Service) ListContent(ctx context.Context) ([]types.SiteContent, error) {
	var items []types.SiteContent
	if c.lookup(ctx, contentAllKey, &items) {
		return items, nil
	}

	items, err := c.storage.ListContent(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, contentAllKey, items, ContentCacheDuration)
	return items, nil
}

// ListContentBySection returns one section's content, cached per section.
func (c *Service) ListContentBySection(ctx context.Context, section string) ([]types.SiteContent, error) {
	key := fmt.Sprintf(contentSectionKey, section)

	var items []types.SiteContent
	if c.lookup(ctx, key, &items) {
		return items, nil
	}

	items, err := c.storage.ListContentBySection(ctx, section)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, items, ContentCacheDuration)
	return items, nil
}

// Settings returns all settings, cached.
func (c *Service) Settings(ctx context.Context) ([]types.Setting, error) {
	var settings []types.Setting
	if c.lookup(ctx, settingsKey, &settings) {
		return settings, nil
	}

	settings, err := c.storage.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, settingsKey, settings, SettingsCacheDuration)
	return settings, nil
}

// ActiveGallery returns the active gallery items, cached.
func (c *Service) ActiveGallery(ctx context.Context) ([]types.GalleryItem, error) {
	var items []types.GalleryItem
	if c.lookup(ctx, galleryKey, &items) {
		return items, nil
	}

	items, err := c.storage.ListGallery(ctx, true)
	if err != nil {
		return nil, err
	}

	c.store(ctx, galleryKey, items, GalleryCacheDuration)
	return items, nil
}

// ActiveTestimonials returns the active testimonials, cached.
func (c *Service) ActiveTestimonials(ctx context.Context) ([]types.Testimonial, error) {
	var items []types.Testimonial
	if c.lookup(ctx, testimonialsKey, &items) {
		return items, nil
	}

	items, err := c.storage.ListTestimonials(ctx, true)
	if err != nil {
		return nil, err
	}

	c.store(ctx, testimonialsKey, items, TestimonialsCacheDuration)
	return items, nil
}

// InvalidateContent drops the content keys, optionally per section.
func (c *Service) InvalidateContent(ctx context.Context, sections ...string) {
	keys := []string{contentAllKey}
	for _, section := range sections {
		keys = append(keys, fmt.Sprintf(contentSectionKey, section))
	}
	c.redis.Del(ctx, keys...)
}

func (c *Service) InvalidateSettings(ctx context.Context) {
	c.redis.Del(ctx, settingsKey)
}

func (c *Service) InvalidateGallery(ctx context.Context) {
	c.redis.Del(ctx, galleryKey)
}

func (c *Service) InvalidateTestimonials(ctx context.Context) {
	c.redis.Del(ctx, testimonialsKey)
}

// lookup reports whether the key held a decodable value. Cache errors are
// treated as misses.
func (c *Service) lookup(ctx context.Context, key string, out interface{}) bool {
	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(cached), out) == nil
}

func (c *Service) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, data, ttl)
}
