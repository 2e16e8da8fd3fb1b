package usecase

import (
	"context"
	"sort"
	"sync"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/logger"
)

// sessionState models the window lifecycle explicitly so a live snapshot and
// an older-page fetch cannot clobber each other: every change to the window
// goes through the same timestamp-sorted union merge.
type sessionState int

const (
	sessionIdle sessionState = iota
	sessionLoadingOlder
)

// WindowUpdate is one consistent view of the message window, emitted whenever
// it changes. Messages are in chronological order; HasMore reports whether
// older history exists beyond the window.
type WindowUpdate struct {
	Messages []*entity.Message `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

// RoomSession is a viewer's live window onto one chatroom: the newest page
// kept fresh by a realtime subscription, extended backward on demand, with
// read state maintained for whatever is visible.
type RoomSession struct {
	RoomID   string
	ViewerID string
	OtherID  string

	pageSize    int
	messageRepo repository.MessageRepository

	mu            sync.Mutex
	state         sessionState
	window        map[string]*entity.Message
	hasMore       bool
	initialLoaded bool

	sub     repository.MessageSubscription
	updates chan WindowUpdate
	done    chan struct{}
	once    sync.Once
}

func newRoomSession(roomID, viewerID, otherID string, pageSize int, messageRepo repository.MessageRepository) *RoomSession {
	return &RoomSession{
		RoomID:      roomID,
		ViewerID:    viewerID,
		OtherID:     otherID,
		pageSize:    pageSize,
		messageRepo: messageRepo,
		window:      make(map[string]*entity.Message),
		updates:     make(chan WindowUpdate, 1),
		done:        make(chan struct{}),
	}
}

// start opens the realtime subscription on the newest page and begins
// consuming snapshots. The first snapshot establishes the window and the
// has-more flag; later ones merge in.
func (s *RoomSession) start(ctx context.Context) error {
	sub, err := s.messageRepo.Subscribe(ctx, s.RoomID, s.pageSize)
	if err != nil {
		return err
	}
	s.sub = sub

	go s.consume(ctx)
	return nil
}

func (s *RoomSession) consume(ctx context.Context) {
	for msgs := range s.sub.Updates() {
		s.mu.Lock()
		if !s.initialLoaded {
			s.initialLoaded = true
			s.hasMore = len(msgs) == s.pageSize
		}
		s.mergeLocked(msgs)
		update := s.snapshotLocked()
		s.mu.Unlock()

		s.markVisibleRead(ctx, update.Messages)
		s.emit(update)
	}
}

// LoadOlder extends the window backward by one page. It is a no-op while a
// load is already in flight or when history is exhausted.
func (s *RoomSession) LoadOlder(ctx context.Context) (WindowUpdate, error) {
	s.mu.Lock()
	if s.state == sessionLoadingOlder || !s.hasMore {
		update := s.snapshotLocked()
		s.mu.Unlock()
		return update, nil
	}
	s.state = sessionLoadingOlder
	cursor := s.oldestLocked()
	s.mu.Unlock()

	if cursor == nil {
		s.mu.Lock()
		s.state = sessionIdle
		s.hasMore = false
		update := s.snapshotLocked()
		s.mu.Unlock()
		return update, nil
	}

	older, err := s.messageRepo.WindowBefore(ctx, s.RoomID, cursor.Time, s.pageSize)

	s.mu.Lock()
	s.state = sessionIdle
	if err != nil {
		update := s.snapshotLocked()
		s.mu.Unlock()
		return update, err
	}
	s.hasMore = len(older) == s.pageSize
	s.mergeLocked(older)
	update := s.snapshotLocked()
	s.mu.Unlock()

	s.markVisibleRead(ctx, update.Messages)
	s.emit(update)
	return update, nil
}

// Window returns the current consistent view.
func (s *RoomSession) Window() WindowUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Updates emits a WindowUpdate whenever the window changes. Consumers should
// select against their own lifecycle; the channel is not closed.
func (s *RoomSession) Updates() <-chan WindowUpdate {
	return s.updates
}

// Done is closed when the session has been torn down.
func (s *RoomSession) Done() <-chan struct{} {
	return s.done
}

// Close tears the subscription down. Safe to call more than once.
func (s *RoomSession) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.sub != nil {
			s.sub.Stop()
		}
	})
}

// mergeLocked unions incoming messages into the window by ID. An incoming
// copy of a known message wins, so readBy growth propagates.
func (s *RoomSession) mergeLocked(msgs []*entity.Message) {
	for _, msg := range msgs {
		s.window[msg.ID] = msg
	}
}

func (s *RoomSession) snapshotLocked() WindowUpdate {
	messages := make([]*entity.Message, 0, len(s.window))
	for _, msg := range s.window {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Time.Equal(messages[j].Time) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Time.Before(messages[j].Time)
	})
	return WindowUpdate{Messages: messages, HasMore: s.hasMore}
}

func (s *RoomSession) oldestLocked() *entity.Message {
	var oldest *entity.Message
	for _, msg := range s.window {
		if oldest == nil || msg.Time.Before(oldest.Time) {
			oldest = msg
		}
	}
	return oldest
}

// markVisibleRead appends the viewer to the read set of every visible message
// from the other participant that the viewer has not read yet. The write is
// one batch; re-running on an unchanged window issues no writes at all.
func (s *RoomSession) markVisibleRead(ctx context.Context, messages []*entity.Message) {
	var unread []string
	for _, msg := range messages {
		if msg.Sender == s.OtherID && !msg.ReadByUser(s.ViewerID) {
			unread = append(unread, msg.ID)
		}
	}
	if len(unread) == 0 {
		return
	}

	if err := s.messageRepo.MarkRead(ctx, unread, s.ViewerID); err != nil {
		logger.Error("Failed to mark %d messages read in room %s: %v", len(unread), s.RoomID, err)
		return
	}

	// Reflect the write locally so the next pass sees these as read even
	// before the subscription echoes the change back.
	s.mu.Lock()
	for _, id := range unread {
		if msg, ok := s.window[id]; ok && !msg.ReadByUser(s.ViewerID) {
			copied := *msg
			copied.ReadBy = append(append([]string{}, msg.ReadBy...), s.ViewerID)
			s.window[id] = &copied
		}
	}
	s.mu.Unlock()
}

// emit delivers the latest window, replacing a stale undelivered one.
func (s *RoomSession) emit(update WindowUpdate) {
	select {
	case <-s.done:
		return
	default:
	}

	for {
		select {
		case s.updates <- update:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
