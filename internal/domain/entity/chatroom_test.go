package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyFor(t *testing.T) {
	assert.Equal(t, "alice_bob", PairKeyFor("alice", "bob"))
	assert.Equal(t, "alice_bob", PairKeyFor("bob", "alice"), "key must not depend on who initiates")
	assert.Equal(t, PairKeyFor("x", "y"), PairKeyFor("y", "x"))
}

func TestChatroomParticipants(t *testing.T) {
	room := &Chatroom{Users: []string{"alice", "bob"}}

	assert.Equal(t, "bob", room.OtherParticipant("alice"))
	assert.Equal(t, "alice", room.OtherParticipant("bob"))
	assert.Equal(t, "alice", room.OtherParticipant("carol"), "a non-member gets the first participant")

	assert.True(t, room.HasParticipant("alice"))
	assert.False(t, room.HasParticipant("carol"))
}

func TestMessageReadByUser(t *testing.T) {
	msg := &Message{ReadBy: []string{"alice"}}

	assert.True(t, msg.ReadByUser("alice"))
	assert.False(t, msg.ReadByUser("bob"))

	empty := &Message{}
	assert.False(t, empty.ReadByUser("alice"))
}
