package repository

import (
	"context"
	"errors"
	"time"

	"old_vibes/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoConversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{
		coll: db.Collection(domain.ConversationCollection),
	}
}

// ConversationIndexes indexes of the conversations collection
func ConversationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}}},
	}
}

func (r *mongoConversationRepository) GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	doc, err := toDocument(conv)
	if err != nil {
		return nil, false, err
	}
	delete(doc, "_id")

	// upsert on the derived _id keeps creation idempotent under concurrent starts
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conv.ID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}

	stored, err := r.FindByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, res != nil && res.UpsertedCount == 1, nil
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func activeFilter(userID string) bson.M {
	return bson.M{
		"is_active": true,
		"$or": bson.A{
			bson.M{"seller_id": userID},
			bson.M{"buyer_id": userID},
		},
	}
}

func (r *mongoConversationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, activeFilter(userID), opts)
	if err != nil {
		return nil, err
	}

	convs := make([]*domain.Conversation, 0, limit)
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *mongoConversationRepository) updateByID(ctx context.Context, id string, update interface{}) error {
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoConversationRepository) ApplyMessage(ctx context.Context, id string, snapshot *domain.LastMessage, receiver domain.Role, incUnread bool) error {
	inc := 0
	if incUnread {
		inc = 1
	}
	field := unreadField(receiver)

	// pipeline update: the snapshot only moves forward in time, so late projections do not overwrite newer ones
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"last_message": bson.M{"$cond": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$last_message", nil}}, nil}},
					bson.M{"$lte": bson.A{"$last_message.created_at", snapshot.CreatedAt}},
				}},
				bson.M{"$literal": snapshot},
				"$last_message",
			}},
			field:        bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, inc}},
			"updated_at": bson.M{"$max": bson.A{"$updated_at", snapshot.CreatedAt}},
		}}},
	}
	return r.updateByID(ctx, id, pipeline)
}

func (r *mongoConversationRepository) DecrementUnread(ctx context.Context, id string, role domain.Role, n int) error {
	field := unreadField(role)
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			field: bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, n}}}},
		}}},
	}
	return r.updateByID(ctx, id, pipeline)
}

func (r *mongoConversationRepository) SetBlocked(ctx context.Context, id string, blocked bool, blockedBy string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"is_blocked": blocked,
		"blocked_by": blockedBy,
		"updated_at": time.Now().UTC(),
	}})
}

func (r *mongoConversationRepository) SumUnread(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: activeFilter(userID)}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$seller_id", userID}},
				"$unread_count.seller",
				"$unread_count.buyer",
			}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var result []struct {
		Total int `bson:"total"`
	}
	if err := cur.All(ctx, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func toDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
