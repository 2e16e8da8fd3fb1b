package usecase

import (
	"context"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/internal/infrastructure/ratelimit"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

type ChatroomUseCase struct {
	chatroomRepo repository.ChatroomRepository
	userRepo     repository.UserRepository
	rateLimiter  *ratelimit.RateLimiter
}

func NewChatroomUseCase(chatroomRepo repository.ChatroomRepository, userRepo repository.UserRepository, rateLimiter *ratelimit.RateLimiter) *ChatroomUseCase {
	return &ChatroomUseCase{
		chatroomRepo: chatroomRepo,
		userRepo:     userRepo,
		rateLimiter:  rateLimiter,
	}
}

// ChatroomResponse pairs a room with the other participant's profile snapshot
// so a list row can be rendered without extra lookups.
type ChatroomResponse struct {
	*entity.Chatroom
	OtherUser *entity.User `json:"other_user,omitempty"`
}

// CreateChatroom opens the room for the unordered pair, creating it on first
// contact. The canonical pair key makes the lookup order-independent, so the
// same room is found no matter which side initiates.
func (uc *ChatroomUseCase) CreateChatroom(ctx context.Context, userID, otherUserID string) (*ChatroomResponse, error) {
	if userID == otherUserID {
		return nil, errors.BadRequest("You cannot create a chatroom with yourself", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(userID, "create_chatroom"); !allowed {
		return nil, errors.TooManyRequests("Too many chatrooms created. Please wait before creating another")
	}

	me, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}
	other, err := uc.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	pairKey := entity.PairKeyFor(userID, otherUserID)

	existing, err := uc.chatroomRepo.GetByPairKey(ctx, pairKey)
	if err == nil && existing != nil {
		return &ChatroomResponse{Chatroom: existing, OtherUser: other}, nil
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	room := &entity.Chatroom{
		Users:   []string{userID, otherUserID},
		PairKey: pairKey,
		UsersData: map[string]*entity.User{
			userID:      me,
			otherUserID: other,
		},
		UnreadCounts: map[string]int{
			userID:      0,
			otherUserID: 0,
		},
	}

	if err := uc.chatroomRepo.Create(ctx, room); err != nil {
		// A racing creation from the other side got there first; the room it
		// made is the one we want.
		if errors.Is(err, "CONFLICT") {
			return uc.openExisting(ctx, pairKey, other)
		}
		return nil, err
	}

	return &ChatroomResponse{Chatroom: room, OtherUser: other}, nil
}

func (uc *ChatroomUseCase) openExisting(ctx context.Context, pairKey string, other *entity.User) (*ChatroomResponse, error) {
	room, err := uc.chatroomRepo.GetByPairKey(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	return &ChatroomResponse{Chatroom: room, OtherUser: other}, nil
}

// ListChatrooms returns the user's rooms, most recent activity first.
func (uc *ChatroomUseCase) ListChatrooms(ctx context.Context, userID string) ([]*ChatroomResponse, error) {
	rooms, err := uc.chatroomRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*ChatroomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp := &ChatroomResponse{Chatroom: room}
		if other := room.OtherParticipant(userID); other != "" {
			resp.OtherUser = room.UsersData[other]
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func (uc *ChatroomUseCase) GetChatroom(ctx context.Context, roomID, userID string) (*ChatroomResponse, error) {
	room, err := uc.chatroomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chatroom", nil)
	}

	resp := &ChatroomResponse{Chatroom: room}
	if other := room.OtherParticipant(userID); other != "" {
		resp.OtherUser = room.UsersData[other]
	}

	return resp, nil
}

// ResetUnread zeroes the viewer's unread counter. Called on room open;
// failures are logged and not surfaced.
func (uc *ChatroomUseCase) ResetUnread(ctx context.Context, roomID, userID string) error {
	room, err := uc.chatroomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chatroom", nil)
	}

	if err := uc.chatroomRepo.ResetUnread(ctx, roomID, userID); err != nil {
		logger.Error("Failed to reset unread counter for user %s in room %s: %v", userID, roomID, err)
		return err
	}
	return nil
}
