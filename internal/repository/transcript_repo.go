package repository

import (
	"context"
	"insightai/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranscriptRepo archives respondent transcripts and follow-up replies in MongoDB
type TranscriptRepo interface {
	Save(ctx context.Context, record *model.TranscriptRecord) error
	Get(ctx context.Context, sessionID string) (*model.TranscriptRecord, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]model.TranscriptRecord, error)
	AppendFollowUp(ctx context.Context, reply model.FollowUpReply) error
}

type transcriptRepo struct {
	coll *mongo.Collection
}

// NewTranscriptRepo creates a new transcript repository
func NewTranscriptRepo(db *mongo.Database) TranscriptRepo {
	return &transcriptRepo{
		coll: db.Collection("transcripts"),
	}
}

// Save upserts the transcript, keeping follow-up replies already appended to it
func (r *transcriptRepo) Save(ctx context.Context, record *model.TranscriptRecord) error {
	set := bson.M{
		"surveyId":   record.SurveyID,
		"responseId": record.ResponseID,
		"skin":       record.Skin,
		"completed":  record.Completed,
		"messages":   record.Messages,
		"startedAt":  record.StartedAt,
		"updatedAt":  record.UpdatedAt,
	}
	if record.CompletedAt != nil {
		set["completedAt"] = record.CompletedAt
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, bson.M{"sessionId": record.SessionID}, bson.M{"$set": set}, opts)
	return err
}

func (r *transcriptRepo) Get(ctx context.Context, sessionID string) (*model.TranscriptRecord, error) {
	var record model.TranscriptRecord
	err := r.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *transcriptRepo) ListBySurvey(ctx context.Context, surveyID string) ([]model.TranscriptRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.TranscriptRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *transcriptRepo) AppendFollowUp(ctx context.Context, reply model.FollowUpReply) error {
	update := bson.M{
		"$push": bson.M{"followUps": reply},
		"$set":  bson.M{"updatedAt": time.Now()},
		"$setOnInsert": bson.M{
			"surveyId":   reply.SurveyID,
			"responseId": reply.ResponseID,
			"startedAt":  reply.AnsweredAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, bson.M{"sessionId": reply.SessionID}, update, opts)
	return err
}
