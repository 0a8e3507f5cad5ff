package app

import "chat_relay/internal/model"

// peerState is what the client knows about the other side of the chat.
type peerState struct {
	online bool
	typing bool
}

func (p *peerState) applyPresence(set model.PresenceSet, peerID string) {
	p.online = set.Contains(peerID)
	if !p.online {
		p.typing = false
	}
}

func (p peerState) line(peerID string) string {
	switch {
	case p.typing:
		return "[green]●[-] " + peerID + " [::i]is typing...[::-]"
	case p.online:
		return "[green]●[-] " + peerID + " online"
	default:
		return "[gray]○[-] " + peerID + " offline"
	}
}
