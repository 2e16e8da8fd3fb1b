package usecase

import (
	"pingline/internal/domain/entity"
	"pingline/internal/infrastructure/websocket"
)

func encodeEvent(frameType, roomID string, data interface{}) []byte {
	return websocket.Encode(frameType, roomID, data)
}

// previewFor is the one-line summary shown in chatroom lists and
// notifications. Image-only messages get a fixed placeholder.
func previewFor(msg *entity.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	return "Image"
}
