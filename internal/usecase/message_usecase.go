package usecase

import (
	"context"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/internal/infrastructure/ratelimit"
	"pingline/internal/infrastructure/websocket"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

type MessageUseCase struct {
	messageRepo  repository.MessageRepository
	chatroomRepo repository.ChatroomRepository
	userRepo     repository.UserRepository
	broadcaster  Broadcaster
	notifier     MessageNotifier
	rateLimiter  *ratelimit.RateLimiter
	pageSize     int
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	chatroomRepo repository.ChatroomRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	notifier MessageNotifier,
	rateLimiter *ratelimit.RateLimiter,
	pageSize int,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo:  messageRepo,
		chatroomRepo: chatroomRepo,
		userRepo:     userRepo,
		broadcaster:  broadcaster,
		notifier:     notifier,
		rateLimiter:  rateLimiter,
		pageSize:     pageSize,
	}
}

type SendMessageInput struct {
	RoomID  string
	Content string
	Image   string
}

// MessagePage is one page of a chatroom's history in chronological order.
// HasMore reports whether messages older than the page exist.
type MessagePage struct {
	Messages []*entity.Message `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

// NewMessageEvent is the realtime payload broadcast when a message lands.
type NewMessageEvent struct {
	Message *entity.Message `json:"message"`
	Sender  *entity.User    `json:"sender"`
}

// ChatListEvent updates chatroom list rows for participants who do not have
// the room open.
type ChatListEvent struct {
	RoomID      string `json:"room_id"`
	LastMessage string `json:"last_message"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
}

func (uc *MessageUseCase) memberRoom(ctx context.Context, roomID, userID string) (*entity.Chatroom, error) {
	room, err := uc.chatroomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chatroom", nil)
	}
	return room, nil
}

// ListLatest returns the newest page of a room's history.
func (uc *MessageUseCase) ListLatest(ctx context.Context, roomID, userID string) (*MessagePage, error) {
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.LatestWindow(ctx, roomID, uc.pageSize)
	if err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages: messages,
		HasMore:  len(messages) == uc.pageSize,
	}, nil
}

// ListBefore returns the page strictly older than the cursor message.
func (uc *MessageUseCase) ListBefore(ctx context.Context, roomID, userID, cursorID string) (*MessagePage, error) {
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	cursor, err := uc.getMessageInRoom(ctx, roomID, cursorID)
	if err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.WindowBefore(ctx, roomID, cursor.Time, uc.pageSize)
	if err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages: messages,
		HasMore:  len(messages) == uc.pageSize,
	}, nil
}

// The cursor is resolved from within the room's own window rather than by a
// bare document read, so a cursor from another room cannot leak history.
func (uc *MessageUseCase) getMessageInRoom(ctx context.Context, roomID, messageID string) (*entity.Message, error) {
	window, err := uc.messageRepo.LatestWindow(ctx, roomID, uc.pageSize)
	if err != nil {
		return nil, err
	}
	for _, msg := range window {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	// Older than the newest page: walk pages until found or exhausted.
	for len(window) == uc.pageSize {
		window, err = uc.messageRepo.WindowBefore(ctx, roomID, window[0].Time, uc.pageSize)
		if err != nil {
			return nil, err
		}
		for _, msg := range window {
			if msg.ID == messageID {
				return msg, nil
			}
		}
		if len(window) == 0 {
			break
		}
	}
	return nil, errors.NotFound("Cursor message", nil)
}

// SendMessage appends a message and updates the room summary in one atomic
// write, then fans out to live viewers and falls back to a push notification
// for the recipient if they do not have the room open.
func (uc *MessageUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.Message, error) {
	if input.Content == "" && input.Image == "" {
		return nil, errors.BadRequest("Message must have text or an image", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		return nil, errors.TooManyRequests("You are sending messages too quickly. Please slow down")
	}

	room, err := uc.memberRoom(ctx, input.RoomID, userID)
	if err != nil {
		return nil, err
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}

	recipientID := room.OtherParticipant(userID)

	message := &entity.Message{
		ChatRoomID: input.RoomID,
		Sender:     userID,
		Content:    input.Content,
		Image:      input.Image,
		ReadBy:     []string{userID},
	}

	if err := uc.messageRepo.Send(ctx, message, recipientID); err != nil {
		return nil, err
	}

	uc.fanOut(ctx, room, message, sender, recipientID)

	return message, nil
}

func (uc *MessageUseCase) fanOut(ctx context.Context, room *entity.Chatroom, message *entity.Message, sender *entity.User, recipientID string) {
	event := NewMessageEvent{Message: message, Sender: sender}
	uc.broadcaster.SendToRoom(room.ID, encodeEvent(websocket.FrameTypeNewMessage, room.ID, event), message.Sender)

	listEvent := ChatListEvent{
		RoomID:      room.ID,
		LastMessage: previewFor(message),
		SenderID:    message.Sender,
		SenderName:  sender.Name,
	}
	uc.broadcaster.SendToUser(recipientID, encodeEvent(websocket.FrameTypeChatListEvent, room.ID, listEvent))

	// Recipients without the room open get a system notification instead of
	// a live window update.
	if !uc.broadcaster.IsUserInRoom(recipientID, room.ID) {
		uc.notifier.NotifyMessage(ctx, recipientID, message.ID,
			"New message from "+sender.Name,
			previewFor(message),
			sender.AvatarURL,
			map[string]string{"room_id": room.ID},
		)
	}
}

// MarkRoomRead runs the read-marking pass over the newest window for the
// viewer: every visible message from the other participant that the viewer
// has not read gets their id appended, in one batch. Idempotent.
func (uc *MessageUseCase) MarkRoomRead(ctx context.Context, roomID, userID string) (int, error) {
	room, err := uc.memberRoom(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	otherID := room.OtherParticipant(userID)

	window, err := uc.messageRepo.LatestWindow(ctx, roomID, uc.pageSize)
	if err != nil {
		return 0, err
	}

	var unread []string
	for _, msg := range window {
		if msg.Sender == otherID && !msg.ReadByUser(userID) {
			unread = append(unread, msg.ID)
		}
	}
	if len(unread) == 0 {
		return 0, nil
	}

	if err := uc.messageRepo.MarkRead(ctx, unread, userID); err != nil {
		return 0, err
	}

	uc.broadcaster.SendToRoom(roomID, encodeEvent(websocket.FrameTypeReadReceipt, roomID, map[string]interface{}{
		"reader_id":   userID,
		"message_ids": unread,
	}), userID)

	return len(unread), nil
}

// OpenSession starts a live window session for a viewer: unread counter
// reset, realtime subscription on the newest page, and read tracking on
// every window change.
func (uc *MessageUseCase) OpenSession(ctx context.Context, roomID, viewerID string) (*RoomSession, error) {
	room, err := uc.memberRoom(ctx, roomID, viewerID)
	if err != nil {
		return nil, err
	}

	// Fire-and-forget, matching the open contract: a failed reset leaves the
	// counter stale until the next successful open.
	go func() {
		if err := uc.chatroomRepo.ResetUnread(context.WithoutCancel(ctx), roomID, viewerID); err != nil {
			logger.Error("Failed to reset unread counter on open of room %s: %v", roomID, err)
		}
	}()

	session := newRoomSession(roomID, viewerID, room.OtherParticipant(viewerID), uc.pageSize, uc.messageRepo)
	if err := session.start(ctx); err != nil {
		return nil, err
	}

	return session, nil
}
