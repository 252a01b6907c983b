package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventContentUpdated     EventType = "content.updated"
	EventMediaUploaded      EventType = "media.uploaded"
	EventMediaDeleted       EventType = "media.deleted"
	EventGalleryChanged     EventType = "gallery.changed"
	EventTestimonialChanged EventType = "testimonial.changed"
	EventSettingsChanged    EventType = "settings.changed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// ContentUpdatedEvent is emitted after a site_content upsert or delete.
type ContentUpdatedEvent struct {
	Section string `json:"section"`
	Key     string `json:"key"`
}

// MediaEvent is emitted after a media upload or deletion.
type MediaEvent struct {
	MediaID string `json:"media_id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
