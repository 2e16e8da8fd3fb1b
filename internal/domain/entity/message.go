package entity

import "time"

// Message is immutable after creation except for ReadBy, which only ever
// grows: ids are added when a participant sees the message, never removed.
type Message struct {
	ID         string    `json:"id" firestore:"id"`
	ChatRoomID string    `json:"chat_room_id" firestore:"chatRoomId"`
	Sender     string    `json:"sender" firestore:"sender"`
	Content    string    `json:"content" firestore:"content"`
	Time       time.Time `json:"time" firestore:"time,serverTimestamp"`
	Image      string    `json:"image,omitempty" firestore:"image,omitempty"`
	ReadBy     []string  `json:"read_by" firestore:"readBy"`
}

// ReadByUser reports whether the user's id is already in the read set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
