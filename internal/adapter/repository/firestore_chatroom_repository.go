package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

type firestoreChatroomRepository struct {
	client *firestore.Client
}

func NewFirestoreChatroomRepository(client *firestore.Client) repository.ChatroomRepository {
	return &firestoreChatroomRepository{
		client: client,
	}
}

// Create uses the canonical pair key as the document ID, so two concurrent
// creations for the same unordered pair cannot both succeed.
func (r *firestoreChatroomRepository) Create(ctx context.Context, room *entity.Chatroom) error {
	room.ID = room.PairKey
	now := time.Now()
	room.CreatedAt = now
	room.Timestamp = now

	_, err := r.client.Collection("chatrooms").Doc(room.ID).Create(ctx, room)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chatroom already exists for these users")
		}
		return errors.Internal("Failed to create chatroom", err)
	}

	return nil
}

func (r *firestoreChatroomRepository) GetByID(ctx context.Context, id string) (*entity.Chatroom, error) {
	doc, err := r.client.Collection("chatrooms").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chatroom", err)
		}
		return nil, errors.Internal("Failed to get chatroom", err)
	}

	var room entity.Chatroom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.Internal("Failed to parse chatroom data", err)
	}
	room.ID = doc.Ref.ID

	return &room, nil
}

func (r *firestoreChatroomRepository) GetByPairKey(ctx context.Context, pairKey string) (*entity.Chatroom, error) {
	// The pair key is the document ID.
	return r.GetByID(ctx, pairKey)
}

func (r *firestoreChatroomRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chatroom, error) {
	query := r.client.Collection("chatrooms").Where("users", "array-contains", userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chatrooms for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch chatrooms", err)
	}

	var rooms []*entity.Chatroom
	for _, doc := range docs {
		var room entity.Chatroom
		if err := doc.DataTo(&room); err != nil {
			logger.Warn("Skipping malformed chatroom document %s: %v", doc.Ref.ID, err)
			continue
		}
		room.ID = doc.Ref.ID
		rooms = append(rooms, &room)
	}

	// Latest activity first. Sorting in memory avoids the composite index an
	// array-contains + order-by query would require.
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Timestamp.After(rooms[j].Timestamp)
	})

	return rooms, nil
}

func (r *firestoreChatroomRepository) ResetUnread(ctx context.Context, roomID, userID string) error {
	_, err := r.client.Collection("chatrooms").Doc(roomID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCounts", userID}, Value: 0},
	})
	if err != nil {
		return errors.Internal("Failed to reset unread counter", err)
	}
	return nil
}
