package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	// Message is a chat line after it has been persisted by the history API.
	// The relay forwards it as-is and never stores it.
	Message struct {
		ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
		ChatID      string             `json:"chatId" bson:"chatId" validate:"required"`
		SenderID    string             `json:"senderId" bson:"senderId" validate:"required"`
		RecipientID string             `json:"recipientId" bson:"recipientId,omitempty" validate:"required,nefield=SenderID"`
		Text        string             `json:"text" bson:"text" validate:"required"`
		CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	}

	// TypingSignal is absolute typing state of UserID towards RecipientID.
	TypingSignal struct {
		UserID      string `json:"userId" validate:"required"`
		RecipientID string `json:"recipientId" validate:"required,nefield=UserID"`
		IsTyping    bool   `json:"isTyping"`
	}
)
