package profiles

import (
	"context"
	"errors"

	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Repository using MongoDB; documents are keyed by _id = subject id.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a new repository for the given collection
func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (r *MongoStore) Get(ctx context.Context, id string) (Document, error) {
	var d Document
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storeErr("get", id, err)
	}
	return d, nil
}

func (r *MongoStore) Set(ctx context.Context, id string, p *models.UserProfile) error {
	if err := checkID(id, p); err != nil {
		return storeErr("set", id, err)
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": id}, p, opts)
	return storeErr("set", id, err)
}

func (r *MongoStore) update(ctx context.Context, op, id string, upd bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, upd)
	if err != nil {
		return storeErr(op, id, err)
	}
	if res.MatchedCount == 0 {
		return storeErr(op, id, ErrNotFound)
	}
	return nil
}

func (r *MongoStore) AddEnrollment(ctx context.Context, id, courseID string) error {
	return r.update(ctx, "enroll", id, bson.M{"$addToSet": bson.M{"enrolledCourses": courseID}})
}

func (r *MongoStore) AddCompletedLesson(ctx context.Context, id, courseID, lessonID string) ([]string, error) {
	field := "completedLessons." + courseID
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})
	var out struct {
		CompletedLessons map[string][]string `bson:"completedLessons"`
	}
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{field: lessonID}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storeErr("complete-lesson", id, ErrNotFound)
		}
		return nil, storeErr("complete-lesson", id, err)
	}
	return out.CompletedLessons[courseID], nil
}

func (r *MongoStore) SetProgress(ctx context.Context, id, courseID string, pct float64) error {
	return r.update(ctx, "progress", id, bson.M{"$set": bson.M{"progress." + courseID: pct}})
}

func (r *MongoStore) AddCompletedCourse(ctx context.Context, id, courseID string) error {
	return r.update(ctx, "complete-course", id, bson.M{"$addToSet": bson.M{"completedCourses": courseID}})
}

func (r *MongoStore) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.update(ctx, "role", id, bson.M{"$set": bson.M{"role": role}})
}

func (r *MongoStore) Touch(ctx context.Context, id, lastActive string) error {
	return r.update(ctx, "touch", id, bson.M{"$set": bson.M{"lastActive": lastActive}})
}
