package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msgAt(i int, roomID, sender string, readBy ...string) *entity.Message {
	return &entity.Message{
		ID:         fmt.Sprintf("m%03d", i),
		ChatRoomID: roomID,
		Sender:     sender,
		Content:    fmt.Sprintf("message %d", i),
		Time:       testEpoch.Add(time.Duration(i) * time.Minute),
		ReadBy:     readBy,
	}
}

type fakeSubscription struct {
	ch      chan []*entity.Message
	once    sync.Once
	stopped bool
}

func (s *fakeSubscription) Updates() <-chan []*entity.Message { return s.ch }
func (s *fakeSubscription) Err() error                        { return nil }
func (s *fakeSubscription) Stop() {
	s.once.Do(func() {
		s.stopped = true
		close(s.ch)
	})
}

// fakeMessageStore holds an in-memory ascending message log and hands out
// subscriptions whose snapshots the test pushes explicitly.
type fakeMessageStore struct {
	mu            sync.Mutex
	messages      []*entity.Message
	unread        map[string]int
	markReadCalls int
	markedIDs     [][]string
	subs          []*fakeSubscription
	pageSize      int
}

func newFakeMessageStore(pageSize int) *fakeMessageStore {
	return &fakeMessageStore{
		unread:   make(map[string]int),
		pageSize: pageSize,
	}
}

func (f *fakeMessageStore) seed(msgs ...*entity.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
}

func (f *fakeMessageStore) latestLocked(n int) []*entity.Message {
	start := len(f.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]*entity.Message, 0, n)
	for _, m := range f.messages[start:] {
		copied := *m
		out = append(out, &copied)
	}
	return out
}

func (f *fakeMessageStore) LatestWindow(ctx context.Context, roomID string, n int) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestLocked(n), nil
}

func (f *fakeMessageStore) WindowBefore(ctx context.Context, roomID string, before time.Time, n int) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var older []*entity.Message
	for _, m := range f.messages {
		if m.Time.Before(before) {
			older = append(older, m)
		}
	}
	start := len(older) - n
	if start < 0 {
		start = 0
	}
	out := make([]*entity.Message, 0, n)
	for _, m := range older[start:] {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeMessageStore) Send(ctx context.Context, msg *entity.Message, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg.ID = fmt.Sprintf("m%03d", len(f.messages)+1)
	msg.Time = testEpoch.Add(time.Duration(len(f.messages)+1) * time.Minute)
	stored := *msg
	f.messages = append(f.messages, &stored)
	f.unread[recipientID]++
	return nil
}

func (f *fakeMessageStore) MarkRead(ctx context.Context, messageIDs []string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markReadCalls++
	f.markedIDs = append(f.markedIDs, messageIDs)
	for _, id := range messageIDs {
		for _, m := range f.messages {
			if m.ID == id && !m.ReadByUser(userID) {
				m.ReadBy = append(m.ReadBy, userID)
			}
		}
	}
	return nil
}

func (f *fakeMessageStore) Subscribe(ctx context.Context, roomID string, n int) (repository.MessageSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &fakeSubscription{ch: make(chan []*entity.Message, 8)}
	f.subs = append(f.subs, sub)
	sub.ch <- f.latestLocked(n)
	return sub, nil
}

// pushSnapshot re-delivers the newest page to every open subscription, the
// way the backing listener does after any change.
func (f *fakeMessageStore) pushSnapshot() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		if !sub.stopped {
			sub.ch <- f.latestLocked(f.pageSize)
		}
	}
}

type fakeChatroomRepo struct {
	mu         sync.Mutex
	rooms      map[string]*entity.Chatroom
	resetCalls []string

	// missLookups makes that many GetByPairKey calls report not-found, to
	// simulate a room created by a racing request after the lookup.
	missLookups int
}

func newFakeChatroomRepo() *fakeChatroomRepo {
	return &fakeChatroomRepo{rooms: make(map[string]*entity.Chatroom)}
}

func (f *fakeChatroomRepo) Create(ctx context.Context, room *entity.Chatroom) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.rooms[room.PairKey]; exists {
		return errors.Conflict("Chatroom already exists for this pair")
	}
	room.ID = room.PairKey
	room.CreatedAt = testEpoch
	room.Timestamp = testEpoch
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeChatroomRepo) GetByID(ctx context.Context, id string) (*entity.Chatroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[id]
	if !ok {
		return nil, errors.NotFound("Chatroom", nil)
	}
	return room, nil
}

func (f *fakeChatroomRepo) GetByPairKey(ctx context.Context, pairKey string) (*entity.Chatroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.missLookups > 0 {
		f.missLookups--
		return nil, errors.NotFound("Chatroom", nil)
	}

	for _, room := range f.rooms {
		if room.PairKey == pairKey {
			return room, nil
		}
	}
	return nil, errors.NotFound("Chatroom", nil)
}

func (f *fakeChatroomRepo) ListByUserID(ctx context.Context, userID string) ([]*entity.Chatroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Chatroom
	for _, room := range f.rooms {
		if room.HasParticipant(userID) {
			out = append(out, room)
		}
	}
	return out, nil
}

func (f *fakeChatroomRepo) ResetUnread(ctx context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[roomID]
	if !ok {
		return errors.NotFound("Chatroom", nil)
	}
	if room.UnreadCounts == nil {
		room.UnreadCounts = make(map[string]int)
	}
	room.UnreadCounts[userID] = 0
	f.resetCalls = append(f.resetCalls, roomID+":"+userID)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (f *fakeUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*entity.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, user)
	}
	return out, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

type sentFrame struct {
	target  string
	payload []byte
	exclude string
}

type fakeBroadcaster struct {
	mu         sync.Mutex
	roomFrames []sentFrame
	userFrames []sentFrame
	inRoom     map[string]bool
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{inRoom: make(map[string]bool)}
}

func (f *fakeBroadcaster) SendToUser(userID string, message []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userFrames = append(f.userFrames, sentFrame{target: userID, payload: message})
}

func (f *fakeBroadcaster) SendToRoom(roomID string, message []byte, excludeUserID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomFrames = append(f.roomFrames, sentFrame{target: roomID, payload: message, exclude: excludeUserID})
}

func (f *fakeBroadcaster) IsUserInRoom(userID, roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inRoom[userID+":"+roomID]
}

func (f *fakeBroadcaster) setInRoom(userID, roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inRoom[userID+":"+roomID] = true
}

type notification struct {
	userID    string
	messageID string
	title     string
	body      string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) NotifyMessage(ctx context.Context, userID, messageID, title, body, icon string, data map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{userID: userID, messageID: messageID, title: title, body: body})
}

func twoUserRoom(repo *fakeChatroomRepo, userA, userB *entity.User) *entity.Chatroom {
	room := &entity.Chatroom{
		Users:   []string{userA.ID, userB.ID},
		PairKey: entity.PairKeyFor(userA.ID, userB.ID),
		UsersData: map[string]*entity.User{
			userA.ID: userA,
			userB.ID: userB,
		},
		UnreadCounts: map[string]int{userA.ID: 0, userB.ID: 0},
	}
	_ = repo.Create(context.Background(), room)
	return room
}
