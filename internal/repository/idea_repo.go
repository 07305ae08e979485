package repository

import (
	"context"
	"errors"

	"ideas-feedback/internal/database"
	"ideas-feedback/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoIdeaRepo struct {
	collection *mongo.Collection
}

func NewMongoIdeaRepo() *MongoIdeaRepo {
	return &MongoIdeaRepo{
		collection: database.GetCollection("ideas"),
	}
}

func (r *MongoIdeaRepo) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.Feedbacks == nil {
		idea.Feedbacks = []models.FeedbackEntry{}
	}
	_, err := r.collection.InsertOne(ctx, idea)
	return err
}

func (r *MongoIdeaRepo) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	var idea models.Idea
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&idea)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIdeaNotFound
		}
		return nil, err
	}
	return &idea, nil
}

// ListRecentIdeas returns the newest ideas in a category without their
// feedback arrays.
func (r *MongoIdeaRepo) ListRecentIdeas(ctx context.Context, category string, limit int) ([]models.Idea, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"feedbacks": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ideas []models.Idea
	if err := cursor.All(ctx, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

func (r *MongoIdeaRepo) LoadFeedbackEntries(ctx context.Context, ideaID string) ([]models.FeedbackEntry, error) {
	var doc struct {
		Feedbacks []models.FeedbackEntry `bson:"feedbacks"`
	}
	opts := options.FindOne().SetProjection(bson.M{"feedbacks": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": ideaID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIdeaNotFound
		}
		return nil, err
	}
	if doc.Feedbacks == nil {
		doc.Feedbacks = []models.FeedbackEntry{}
	}
	return doc.Feedbacks, nil
}

func (r *MongoIdeaRepo) SaveFeedbackEntries(ctx context.Context, ideaID string, entries []models.FeedbackEntry) error {
	if entries == nil {
		entries = []models.FeedbackEntry{}
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": ideaID}, bson.M{
		"$set": bson.M{"feedbacks": entries},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

func (r *MongoIdeaRepo) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

// EnsureIndexes creates necessary indexes for the ideas collection
func (r *MongoIdeaRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
