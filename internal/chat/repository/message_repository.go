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

type mongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll: db.Collection(domain.MessageCollection),
	}
}

// MessageIndexes indexes of the messages collection
func MessageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "projection.state", Value: 1}, {Key: "projection.next_attempt_at", Value: 1}}},
	}
}

func (r *mongoMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *mongoMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID, "is_deleted": false}
	// ids are time ordered (uuid v7), so _id breaks created_at ties in insertion order
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	msgs := make([]*domain.Message, 0, limit)
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *mongoMessageRepository) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		// distinguish "absent" from "condition not met"
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": filter["_id"]})
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, ErrNotFound
		}
	}
	return res.ModifiedCount == 1, nil
}

// updateBefore like updateOne, returning the document as it was before the update, nil when the condition was not met
func (r *mongoMessageRepository) updateBefore(ctx context.Context, filter, update bson.M) (*domain.Message, error) {
	var before domain.Message
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": filter["_id"]})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, id, readerID string, at time.Time) (bool, bool, error) {
	before, err := r.updateBefore(ctx,
		bson.M{"_id": id, "receiver_id": readerID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil || before == nil {
		return false, false, err
	}
	return true, before.Projection.UnreadCounted, nil
}

func (r *mongoMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, int64, error) {
	unread := func(counted interface{}) bson.M {
		return bson.M{
			"conversation_id":           conversationID,
			"receiver_id":               readerID,
			"is_read":                   false,
			"projection.unread_counted": counted,
		}
	}
	set := bson.M{"$set": bson.M{"is_read": true, "read_at": at}}

	// uncounted first: a message counted between the two updates is still caught by the second one
	uncounted, err := r.coll.UpdateMany(ctx, unread(bson.M{"$ne": true}), set)
	if err != nil {
		return 0, 0, err
	}
	counted, err := r.coll.UpdateMany(ctx, unread(true), set)
	if err != nil {
		return uncounted.ModifiedCount, 0, err
	}
	return uncounted.ModifiedCount + counted.ModifiedCount, counted.ModifiedCount, nil
}

func (r *mongoMessageRepository) MarkUnreadCounted(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "is_read": false, "is_deleted": false},
		bson.M{"$set": bson.M{"projection.unread_counted": true}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoMessageRepository) UpdateOfferStatus(ctx context.Context, id string, from, to domain.OfferStatus, at time.Time) (bool, error) {
	return r.updateOne(ctx,
		bson.M{"_id": id, "offer_data.status": from},
		bson.M{"$set": bson.M{"offer_data.status": to, "updated_at": at}},
	)
}

func (r *mongoMessageRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (bool, error) {
	return r.updateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"content": content, "is_edited": true, "edited_at": at, "updated_at": at}},
	)
}

func (r *mongoMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) (bool, bool, error) {
	before, err := r.updateBefore(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"is_deleted":                true,
			"deleted_at":                at,
			"updated_at":                at,
			"projection.unread_counted": false,
		}},
	)
	if err != nil || before == nil {
		return false, false, err
	}
	return true, before.Projection.UnreadCounted && !before.IsRead, nil
}

func (r *mongoMessageRepository) ClaimUnprojected(ctx context.Context, now, staleBefore time.Time, limit int) ([]*domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{
			"projection.state":           bson.M{"$in": bson.A{domain.ProjectionPending, domain.ProjectionFailed}},
			"projection.next_attempt_at": bson.M{"$lte": now},
		},
		bson.M{
			"projection.state":      domain.ProjectionClaimed,
			"projection.claimed_at": bson.M{"$lt": staleBefore},
		},
	}}
	update := bson.M{"$set": bson.M{
		"projection.state":      domain.ProjectionClaimed,
		"projection.claimed_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	claimed := make([]*domain.Message, 0, limit)
	for len(claimed) < limit {
		var msg domain.Message
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, &msg)
	}
	return claimed, nil
}

func (r *mongoMessageRepository) MarkProjected(ctx context.Context, id string) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"projection.state":      domain.ProjectionDone,
		"projection.last_error": "",
	}})
	return err
}

func (r *mongoMessageRepository) MarkProjectionFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"projection.state":           domain.ProjectionFailed,
			"projection.next_attempt_at": next,
			"projection.last_error":      errMsg,
		},
		"$inc": bson.M{"projection.attempts": 1},
	})
	return err
}
