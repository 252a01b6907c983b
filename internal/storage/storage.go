package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// ErrNotFound is returned when a row does not exist. For admin profiles this
// is an expected state and callers must not treat it as a failure.
var ErrNotFound = errors.New("not found")

type MediaInput struct {
	Name    string
	URL     string
	Type    string
	Size    int64
	AltText string
}

type MediaFilters struct {
	Type   string
	Search string
}

type ContentInput struct {
	Section string
	Key     string
	Value   json.RawMessage
	Type    types.ContentType
}

type GalleryInput struct {
	Title    string
	ImageURL string
	AltText  string
	Position int
	IsActive bool
}

type TestimonialInput struct {
	Name     string
	Rating   int
	Comment  string
	Location string
	ImageURL string
	IsActive bool
	Position int
}

type SettingInput struct {
	Key   string
	Value json.RawMessage
}

// PositionUpdate pairs a row id with its new ordering position.
type PositionUpdate struct {
	ID       string
	Position int
}

type AdminStore interface {
	CreateAdmin(ctx context.Context, email, passwordHash string, role types.Role) (*types.AdminUser, error)
	GetAdminByID(ctx context.Context, id string) (*types.AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (*types.AdminUser, string, error)
	ListAdmins(ctx context.Context) ([]types.AdminUser, error)
	UpdateAdminRole(ctx context.Context, id string, role types.Role) error
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
	DeleteAdmin(ctx context.Context, id string) error
}

type MediaStore interface {
	CreateMedia(ctx context.Context, in MediaInput) (*types.MediaFile, error)
	GetMediaByID(ctx context.Context, id string) (*types.MediaFile, error)
	ListMedia(ctx context.Context, f MediaFilters) ([]types.MediaFile, error)
	ListMediaURLs(ctx context.Context) ([]string, error)
	UpdateMedia(ctx context.Context, id, name, altText string) (*types.MediaFile, error)
	DeleteMedia(ctx context.Context, id string) error
	CountMedia(ctx context.Context) (int, error)
	TotalMediaSize(ctx context.Context) (int64, error)
}

type ContentStore interface {
	ListContent(ctx context.Context) ([]types.SiteContent, error)
	ListContentBySection(ctx context.Context, section string) ([]types.SiteContent, error)
	GetContent(ctx context.Context, section, key string) (*types.SiteContent, error)
	UpsertContent(ctx context.Context, in ContentInput) (*types.SiteContent, error)
	DeleteContent(ctx context.Context, section, key string) error
}

type GalleryStore interface {
	ListGallery(ctx context.Context, activeOnly bool) ([]types.GalleryItem, error)
	GetGalleryItem(ctx context.Context, id string) (*types.GalleryItem, error)
	CreateGalleryItem(ctx context.Context, in GalleryInput) (*types.GalleryItem, error)
	UpdateGalleryItem(ctx context.Context, id string, in GalleryInput) (*types.GalleryItem, error)
	SetGalleryActive(ctx context.Context, id string, active bool) error
	ReorderGallery(ctx context.Context, updates []PositionUpdate) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

type TestimonialStore interface {
	ListTestimonials(ctx context.Context, activeOnly bool) ([]types.Testimonial, error)
	GetTestimonial(ctx context.Context, id string) (*types.Testimonial, error)
	CreateTestimonial(ctx context.Context, in TestimonialInput) (*types.Testimonial, error)
	UpdateTestimonial(ctx context.Context, id string, in TestimonialInput) (*types.Testimonial, error)
	SetTestimonialActive(ctx context.Context, id string, active bool) error
	ReorderTestimonials(ctx context.Context, updates []PositionUpdate) error
	DeleteTestimonial(ctx context.Context, id string) error
	TestimonialStats(ctx context.Context) (*types.TestimonialStats, error)
}

type SettingsStore interface {
	ListSettings(ctx context.Context) ([]types.Setting, error)
	GetSetting(ctx context.Context, key string) (*types.Setting, error)
	GetSettings(ctx context.Context, keys []string) ([]types.Setting, error)
	UpsertSetting(ctx context.Context, in SettingInput) (*types.Setting, error)
	UpsertSettings(ctx context.Context, items []SettingInput) ([]types.Setting, error)
	DeleteSetting(ctx context.Context, key string) error
}

// Storage is the full persistence surface of the CMS.
type Storage interface {
	AdminStore
	MediaStore
	ContentStore
	GalleryStore
	TestimonialStore
	SettingsStore
}
