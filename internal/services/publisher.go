package services

import (
	"context"

	"github.com/google/uuid"
)

// Publisher pushes a live event to every open connection of a user.
type Publisher interface {
	Publish(ctx context.Context, userID string, event any) error
}

// Notifier records a notification for a user and announces it live.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, kind, title string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
