package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingline/internal/domain/entity"
)

const (
	testRoom   = "alice_bob"
	testViewer = "alice"
	testOther  = "bob"
)

func waitUpdate(t *testing.T, s *RoomSession) WindowUpdate {
	t.Helper()
	select {
	case update := <-s.Updates():
		return update
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for window update")
		return WindowUpdate{}
	}
}

// seedHistory fills the store with n messages from the other participant,
// already read by both sides.
func seedHistory(store *fakeMessageStore, n int) {
	for i := 1; i <= n; i++ {
		store.seed(msgAt(i, testRoom, testOther, testViewer, testOther))
	}
}

func openSession(t *testing.T, store *fakeMessageStore, pageSize int) *RoomSession {
	t.Helper()
	s := newRoomSession(testRoom, testViewer, testOther, pageSize, store)
	require.NoError(t, s.start(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func TestRoomSessionInitialWindow(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 45)

	s := openSession(t, store, 20)
	update := waitUpdate(t, s)

	require.Len(t, update.Messages, 20)
	assert.True(t, update.HasMore)
	assert.Equal(t, "m026", update.Messages[0].ID)
	assert.Equal(t, "m045", update.Messages[19].ID)

	// Chronological order throughout
	for i := 1; i < len(update.Messages); i++ {
		assert.True(t, update.Messages[i-1].Time.Before(update.Messages[i].Time))
	}
}

func TestRoomSessionInitialWindowShortHistory(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 5)

	s := openSession(t, store, 20)
	update := waitUpdate(t, s)

	require.Len(t, update.Messages, 5)
	assert.False(t, update.HasMore, "a partial first page means history is exhausted")
}

func TestRoomSessionLoadOlderPagination(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 45)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	// First extension: a full page, more remains
	update, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	require.Len(t, update.Messages, 40)
	assert.True(t, update.HasMore)
	assert.Equal(t, "m006", update.Messages[0].ID)

	// Second extension: the last 5, history exhausted
	update, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	require.Len(t, update.Messages, 45)
	assert.False(t, update.HasMore)
	assert.Equal(t, "m001", update.Messages[0].ID)

	// Exhausted history makes further loads a no-op
	update, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Len(t, update.Messages, 45)
	assert.False(t, update.HasMore)
}

func TestRoomSessionExactPageBoundary(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 40)

	s := openSession(t, store, 20)
	first := waitUpdate(t, s)
	assert.True(t, first.HasMore)

	update, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	require.Len(t, update.Messages, 40)
	// A full page came back, so the session cannot rule out older history
	// until the next load returns empty.
	assert.True(t, update.HasMore)

	update, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Len(t, update.Messages, 40)
	assert.False(t, update.HasMore)
}

func TestRoomSessionMergesLiveAndOlder(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 45)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	_, err := s.LoadOlder(context.Background())
	require.NoError(t, err)

	// A new message arrives; the listener redelivers the newest page.
	msg := &entity.Message{ChatRoomID: testRoom, Sender: testOther, Content: "hello", ReadBy: []string{testOther}}
	require.NoError(t, store.Send(context.Background(), msg, testViewer))
	store.pushSnapshot()

	var update WindowUpdate
	for {
		update = waitUpdate(t, s)
		if len(update.Messages) == 41 {
			break
		}
	}

	// The older page and the live message coexist, sorted by time.
	assert.Equal(t, "m006", update.Messages[0].ID)
	assert.Equal(t, msg.ID, update.Messages[40].ID)
	for i := 1; i < len(update.Messages); i++ {
		assert.True(t, update.Messages[i-1].Time.Before(update.Messages[i].Time))
	}
}

func TestRoomSessionMarksVisibleRead(t *testing.T) {
	store := newFakeMessageStore(20)
	// Three unread messages from the other side
	store.seed(
		msgAt(1, testRoom, testOther, testOther),
		msgAt(2, testRoom, testOther, testOther),
		msgAt(3, testRoom, testOther, testOther),
	)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	store.mu.Lock()
	calls := store.markReadCalls
	marked := store.markedIDs
	store.mu.Unlock()

	require.Equal(t, 1, calls, "one batch for all visible unread messages")
	assert.ElementsMatch(t, []string{"m001", "m002", "m003"}, marked[0])

	for _, m := range store.messages {
		assert.True(t, m.ReadByUser(testViewer))
	}
}

func TestRoomSessionReadMarkingIsIdempotent(t *testing.T) {
	store := newFakeMessageStore(20)
	store.seed(msgAt(1, testRoom, testOther, testOther))

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	// The listener echoes the read-marking write back; nothing new to mark.
	store.pushSnapshot()
	time.Sleep(100 * time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.markReadCalls)
}

func TestRoomSessionOwnMessagesNotMarked(t *testing.T) {
	store := newFakeMessageStore(20)
	store.seed(
		msgAt(1, testRoom, testViewer, testViewer),
		msgAt(2, testRoom, testViewer, testViewer),
	)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Zero(t, store.markReadCalls, "the viewer's own messages need no read marking")
}

func TestRoomSessionEmptyRoom(t *testing.T) {
	store := newFakeMessageStore(20)

	s := openSession(t, store, 20)
	update := waitUpdate(t, s)

	assert.Empty(t, update.Messages)
	assert.False(t, update.HasMore)

	update, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, update.Messages)
	assert.False(t, update.HasMore)
}

func TestRoomSessionCloseStopsSubscription(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 3)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Close")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.subs, 1)
	assert.True(t, store.subs[0].stopped)
}

func TestRoomSessionWindowAccessor(t *testing.T) {
	store := newFakeMessageStore(20)
	seedHistory(store, 10)

	s := openSession(t, store, 20)
	waitUpdate(t, s)

	window := s.Window()
	assert.Len(t, window.Messages, 10)
	assert.False(t, window.HasMore)
}
