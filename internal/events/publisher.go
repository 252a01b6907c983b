package events

import (
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

// Publisher interface for publishing CMS change events
type Publisher interface {
	PublishContentUpdated(section, key string)
	PublishMediaUploaded(mediaID, name, url string)
	PublishMediaDeleted(mediaID, name string)
	PublishGalleryChanged()
	PublishTestimonialChanged()
	PublishSettingsChanged()
}

// Broadcaster is the slice of the WebSocket hub the publisher needs.
type Broadcaster interface {
	Broadcast(event *types.Event)
}

// EventPublisher implements the Publisher interface on top of the hub.
// Admin UIs use these events to invalidate their local caches live.
type EventPublisher struct {
	hub Broadcaster
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub Broadcaster) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

func (p *EventPublisher) PublishContentUpdated(section, key string) {
	p.hub.Broadcast(types.NewEvent(types.EventContentUpdated, &types.ContentUpdatedEvent{
		Section: section,
		Key:     key,
	}))
}

func (p *EventPublisher) PublishMediaUploaded(mediaID, name, url string) {
	p.hub.Broadcast(types.NewEvent(types.EventMediaUploaded, &types.MediaEvent{
		MediaID: mediaID,
		Name:    name,
		URL:     url,
	}))
}

func (p *EventPublisher) PublishMediaDeleted(mediaID, name string) {
	p.hub.Broadcast(types.NewEvent(types.EventMediaDeleted, &types.MediaEvent{
		MediaID: mediaID,
		Name:    name,
	}))
}

func (p *EventPublisher) PublishGalleryChanged() {
	p.hub.Broadcast(types.NewEvent(types.EventGalleryChanged, nil))
}

func (p *EventPublisher) PublishTestimonialChanged() {
	p.hub.Broadcast(types.NewEvent(types.EventTestimonialChanged, nil))
}

func (p *EventPublisher) PublishSettingsChanged() {
	p.hub.Broadcast(types.NewEvent(types.EventSettingsChanged, nil))
}
