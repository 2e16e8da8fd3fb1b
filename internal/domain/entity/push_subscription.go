package entity

import "time"

// PushSubscription is a browser Web Push endpoint registered by a user.
type PushSubscription struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Endpoint  string    `json:"endpoint" firestore:"endpoint"`
	P256dh    string    `json:"p256dh" firestore:"p256dh"`
	Auth      string    `json:"auth" firestore:"auth"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
