package chat

import (
	"context"
	"time"

	"chat_relay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	ChatRepo struct {
		collection *mongo.Collection
	}
)

func NewChatRepo(db *mongo.Database) *ChatRepo {
	return &ChatRepo{
		collection: db.Collection("chats"),
	}
}

func (r *ChatRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "members", Value: 1}},
		},
	})
	return err
}

// FindBetween returns the chat holding both members, or nil, nil.
func (r *ChatRepo) FindBetween(ctx context.Context, firstID, secondID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.collection.FindOne(ctx, bson.M{"key": model.ChatKey(firstID, secondID)}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &chat, nil
}

// FindOrCreate returns the existing chat between the two members or creates it.
// The bool reports whether a new chat was created. Concurrent calls for the
// same pair converge on one document through the unique key index.
func (r *ChatRepo) FindOrCreate(ctx context.Context, firstID, secondID string) (*model.Chat, bool, error) {
	key := model.ChatKey(firstID, secondID)
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"members":   bson.A{firstID, secondID},
			"createdAt": now,
			"updatedAt": now,
		},
	}

	created := false
	res, err := r.collection.UpdateOne(ctx, bson.M{"key": key}, update, options.Update().SetUpsert(true))
	switch {
	case mongo.IsDuplicateKeyError(err):
		// lost the insert race, the winner's document is read below
	case err != nil:
		return nil, false, err
	default:
		created = res.UpsertedCount == 1
	}

	chat, err := r.FindBetween(ctx, firstID, secondID)
	if err != nil {
		return nil, false, err
	}
	if chat == nil {
		return nil, false, mongo.ErrNoDocuments
	}
	return chat, created, nil
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	filter := bson.M{
		"members": bson.M{"$in": bson.A{userID}},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"updatedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []*model.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// Touch bumps updatedAt so recently active chats sort first.
func (r *ChatRepo) Touch(ctx context.Context, chatID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil
	}

	_, err = r.collection.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"updatedAt": at}})
	return err
}

// GetByID returns nil, nil when the chat does not exist or the id is malformed.
func (r *ChatRepo) GetByID(ctx context.Context, chatID string) (*model.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, nil
	}

	var chat model.Chat
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &chat, nil
}
