package model

import "github.com/samber/lo"

type (
	PresenceEntry struct {
		UserID       string `json:"userId"`
		ConnectionID string `json:"socketId"`
	}

	// PresenceSet is a point-in-time copy of the online users, ordered by UserID.
	PresenceSet []PresenceEntry
)

func (p PresenceSet) Contains(userID string) bool {
	return lo.ContainsBy(p, func(e PresenceEntry) bool {
		return e.UserID == userID
	})
}

func (p PresenceSet) UserIDs() []string {
	return lo.Map(p, func(e PresenceEntry, _ int) string {
		return e.UserID
	})
}
