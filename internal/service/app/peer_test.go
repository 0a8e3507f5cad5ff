package app

import (
	"testing"

	"chat_relay/internal/model"

	"github.com/stretchr/testify/require"
)

func TestPeerState_Follows_Presence_And_Typing(t *testing.T) {
	req := require.New(t)
	var p peerState

	req.Contains(p.line("bob"), "offline")

	p.applyPresence(model.PresenceSet{{UserID: "alice"}, {UserID: "bob"}}, "bob")
	req.True(p.online)
	req.Contains(p.line("bob"), "online")

	p.typing = true
	req.Contains(p.line("bob"), "typing")

	// going offline clears a stale typing indicator
	p.applyPresence(model.PresenceSet{{UserID: "alice"}}, "bob")
	req.False(p.online)
	req.False(p.typing)
	req.Contains(p.line("bob"), "offline")
}
