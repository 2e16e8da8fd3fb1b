package usecase

import "context"

// AuthClient is the authentication collaborator: account creation, token
// verification, and email/password sign-in.
type AuthClient interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	SignInWithEmailPassword(ctx context.Context, email, password string) (string, string, error)
	RefreshIDToken(ctx context.Context, refreshToken string) (string, string, error)
}

// Broadcaster pushes realtime payloads to connected viewers.
type Broadcaster interface {
	SendToUser(userID string, message []byte)
	SendToRoom(roomID string, message []byte, excludeUserID string)
	IsUserInRoom(userID, roomID string) bool
}

// MessageNotifier delivers an out-of-band notification for a message to a
// user who does not currently have the chatroom open.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, userID, messageID, title, body, icon string, data map[string]string)
}
