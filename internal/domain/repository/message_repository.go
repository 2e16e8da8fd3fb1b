package repository

import (
	"context"
	"time"

	"pingline/internal/domain/entity"
)

// MessageSubscription is a scoped realtime listener on the newest page of a
// chatroom's messages. Every change delivers the full current result set for
// the query, not a delta. Stop must be called when the viewer leaves.
type MessageSubscription interface {
	Updates() <-chan []*entity.Message
	Err() error
	Stop()
}

type MessageRepository interface {
	// LatestWindow returns the n chronologically latest messages of a room,
	// in ascending order.
	LatestWindow(ctx context.Context, roomID string, n int) ([]*entity.Message, error)

	// WindowBefore returns the n latest messages strictly older than the
	// cursor timestamp, in ascending order.
	WindowBefore(ctx context.Context, roomID string, before time.Time, n int) ([]*entity.Message, error)

	// Send atomically creates the message and updates the room's summary
	// state: lastMessage preview, activity timestamp, and the recipient's
	// unread counter incremented by one.
	Send(ctx context.Context, msg *entity.Message, recipientID string) error

	// MarkRead adds the user to the read set of each message in one batch.
	// Adding an id that is already present is a no-op.
	MarkRead(ctx context.Context, messageIDs []string, userID string) error

	// Subscribe opens a realtime subscription on the newest n messages.
	Subscribe(ctx context.Context, roomID string, n int) (MessageSubscription, error)
}
