package model

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	Chat struct {
		ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
		Key       string             `json:"-" bson:"key"`
		Members   []string           `json:"members" bson:"members"`
		CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
		UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
	}

	User struct {
		ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
		Name      string             `json:"name" bson:"name" validate:"required,min=3,max=30"`
		Email     string             `json:"email" bson:"email" validate:"required,email,max=200"`
		CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
		UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
	}
)

// ChatKey identifies the chat between two users regardless of argument order.
func ChatKey(firstID, secondID string) string {
	members := []string{firstID, secondID}
	slices.Sort(members)
	return strings.Join(members, ":")
}

func (c *Chat) HasMember(userID string) bool {
	return lo.Contains(c.Members, userID)
}

// Peer returns the member of a two-party chat that is not userID.
func (c *Chat) Peer(userID string) (string, bool) {
	for _, m := range c.Members {
		if m != userID {
			return m, true
		}
	}
	return "", false
}
