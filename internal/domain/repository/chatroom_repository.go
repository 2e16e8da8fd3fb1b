package repository

import (
	"context"

	"pingline/internal/domain/entity"
)

type ChatroomRepository interface {
	// Create stores the room under its canonical pair key. Returns a
	// CONFLICT error when a room for the same unordered pair already exists.
	Create(ctx context.Context, room *entity.Chatroom) error
	GetByID(ctx context.Context, id string) (*entity.Chatroom, error)
	GetByPairKey(ctx context.Context, pairKey string) (*entity.Chatroom, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chatroom, error)

	// ResetUnread zeroes the viewer's unread counter on the room document.
	ResetUnread(ctx context.Context, roomID, userID string) error
}
