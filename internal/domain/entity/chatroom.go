package entity

import (
	"sort"
	"strings"
	"time"
)

// Chatroom is a single two-party conversation and its summary state. The
// usersData snapshots are captured when the room is created and are not
// refreshed on later profile changes.
type Chatroom struct {
	ID           string           `json:"id" firestore:"id"`
	Users        []string         `json:"users" firestore:"users"`
	PairKey      string           `json:"-" firestore:"pairKey"`
	UsersData    map[string]*User `json:"users_data" firestore:"usersData"`
	LastMessage  string           `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	Timestamp    time.Time        `json:"timestamp" firestore:"timestamp"`
	UnreadCounts map[string]int   `json:"unread_counts" firestore:"unreadCounts"`
	CreatedAt    time.Time        `json:"created_at" firestore:"createdAt"`
}

// PairKeyFor derives the canonical, order-independent key for a pair of
// participants. Using it as the chatroom document ID makes at most one room
// per unordered pair a storage-level guarantee.
func PairKeyFor(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// OtherParticipant returns the participant that is not the given user.
func (c *Chatroom) OtherParticipant(userID string) string {
	for _, id := range c.Users {
		if id != userID {
			return id
		}
	}
	return ""
}

// HasParticipant reports whether the user belongs to this room.
func (c *Chatroom) HasParticipant(userID string) bool {
	for _, id := range c.Users {
		if id == userID {
			return true
		}
	}
	return false
}
