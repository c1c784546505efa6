package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists sessions. GetByID returns nil, nil for unknown ids.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	DeleteByID(ctx context.Context, id string) error
	// DeleteBySubject removes every session of sub and returns how many there were.
	DeleteBySubject(ctx context.Context, sub string) (int, error)
}

// MongoRepository keeps one document per session, keyed by session id.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository ensures a subject index and a TTL index so Mongo drops expired sessions itself.
func NewMongoRepository(ctx context.Context, col *mongo.Collection) *MongoRepository {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sub", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
	_, _ = col.Indexes().CreateMany(ctx, idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	if s.ExpiresAt.IsZero() {
		return errors.New("session has no expiry")
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	var s Session
	// the TTL monitor runs once a minute, so expired documents may still be present
	filter := bson.M{"_id": id, "expiresAt": bson.M{"$gt": time.Now().UTC()}}
	if err := r.col.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) DeleteBySubject(ctx context.Context, sub string) (int, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"sub": sub})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}
