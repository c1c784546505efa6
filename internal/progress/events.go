package progress

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Enrollment is one enrollment event; analytics aggregate over these.
type Enrollment struct {
	UserID     string    `bson:"userId" json:"userId"`
	CourseID   string    `bson:"courseId" json:"courseId"`
	EnrolledAt time.Time `bson:"enrolledAt" json:"enrolledAt"`
}

// monthKey is the bucket format used by CountByMonth.
const monthKey = "2006-01"

// EventStore records enrollments and counts them per calendar month (UTC).
type EventStore interface {
	Record(ctx context.Context, e Enrollment) error
	// CountByMonth returns counts keyed "YYYY-MM" for events at or after since.
	CountByMonth(ctx context.Context, since time.Time) (map[string]int, error)
}

type MemoryEvents struct {
	mu     sync.Mutex
	events []Enrollment
}

func NewMemoryEvents() *MemoryEvents { return &MemoryEvents{} }

func (m *MemoryEvents) Record(ctx context.Context, e Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryEvents) CountByMonth(ctx context.Context, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.events {
		if e.EnrolledAt.Before(since) {
			continue
		}
		out[e.EnrolledAt.UTC().Format(monthKey)]++
	}
	return out, nil
}

// MongoEvents stores events in a collection and counts them with an aggregation pipeline.
type MongoEvents struct {
	col *mongo.Collection
}

func NewMongoEvents(ctx context.Context, col *mongo.Collection) *MongoEvents {
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "enrolledAt", Value: 1}}})
	return &MongoEvents{col: col}
}

func (m *MongoEvents) Record(ctx context.Context, e Enrollment) error {
	_, err := m.col.InsertOne(ctx, e)
	return err
}

func (m *MongoEvents) CountByMonth(ctx context.Context, since time.Time) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"enrolledAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$enrolledAt", "timezone": "UTC"}},
			"total": bson.M{"$sum": 1},
		}}},
	}
	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int{}
	for cur.Next(ctx) {
		var row struct {
			Month string `bson:"_id"`
			Total int    `bson:"total"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Month] = row.Total
	}
	return out, cur.Err()
}
