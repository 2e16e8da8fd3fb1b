package websocket

import (
	"encoding/json"
	"time"
)

// Frame types exchanged with the browser client.
const (
	FrameTypePing          = "ping"
	FrameTypePong          = "pong"
	FrameTypeJoinRoom      = "join_room"
	FrameTypeLeaveRoom     = "leave_room"
	FrameTypeLoadMore      = "load_more"
	FrameTypeWindow        = "window"
	FrameTypeNewMessage    = "new_message"
	FrameTypeReadReceipt   = "read_receipt"
	FrameTypeChatListEvent = "chat_list_update"
	FrameTypeError         = "error"
)

// Frame is the envelope for every WebSocket exchange.
type Frame struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Encode marshals a frame with the given payload. Marshal failures are
// programming errors on our own types; they surface as a nil slice the
// write pump ignores.
func Encode(frameType, roomID string, data interface{}) []byte {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		raw = encoded
	}

	payload, err := json.Marshal(Frame{
		Type:      frameType,
		RoomID:    roomID,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil
	}
	return payload
}
