package ports

import (
	"context"
	"time"
)

// PassEventKind names a lifecycle notification.
type PassEventKind string

const (
	PassRequested PassEventKind = "pass.requested"
	PassEnded     PassEventKind = "pass.ended"
)

// PassEvent tells the approval workflow that something happened to a pass.
type PassEvent struct {
	Kind       PassEventKind `json:"kind"`
	PassID     string        `json:"pass_id"`
	Author     string        `json:"author"`
	FromRoom   string        `json:"from_room,omitempty"`
	ToRoom     string        `json:"to_room,omitempty"`
	Duration   *int          `json:"duration,omitempty"`
	SchoolID   string        `json:"school_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// PassNotifier accepts lifecycle notifications without blocking the caller.
type PassNotifier interface {
	Notify(event PassEvent)
}

// EventPublisher delivers a notification to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event PassEvent) error
}
