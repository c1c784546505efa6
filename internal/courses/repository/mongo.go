package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores courses in a collection keyed by the course id (a UUID string in _id).
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) *MongoRepo {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "level", Value: 1}}},
		{Keys: bson.D{{Key: "isFeatured", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(ctx, idx)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, c *courses.Course) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*courses.Course, error) {
	var c courses.Course
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoRepo) List(ctx context.Context, f courses.Filter) ([]*courses.Course, error) {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Level != "" {
		q["level"] = f.Level
	}
	if f.Featured {
		q["isFeatured"] = true
	}
	cur, err := m.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*courses.Course{}
	for cur.Next(ctx) {
		var c courses.Course
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, id string, p courses.Patch) (*courses.Course, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Instructor != nil {
		set["instructor"] = *p.Instructor
	}
	if p.Level != nil {
		set["level"] = *p.Level
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	if p.IsFeatured != nil {
		set["isFeatured"] = *p.IsFeatured
	}
	if p.IsPopular != nil {
		set["isPopular"] = *p.IsPopular
	}
	if p.Lessons != nil {
		set["lessons"] = *p.Lessons
	}
	var c courses.Course
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) IncrementStudents(ctx context.Context, id string) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"students": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
