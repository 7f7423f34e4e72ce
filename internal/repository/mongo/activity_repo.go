package mongo

import (
	"context"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ObjectIDs minted in-process increase monotonically, so sorting on _id
// after timestamp keeps insertion order for records in the same millisecond.
type motorActivityDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Status    bool               `bson:"status"`
	Timestamp time.Time          `bson:"timestamp"`
}

type phaseDetectionDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"user_id"`
	ActivePhase int                `bson:"active_phase"`
	Timestamp   time.Time          `bson:"timestamp"`
}

type activityRepository struct {
	motor  *mongo.Collection
	phases *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *activityRepository {
	return &activityRepository{
		motor:  db.Collection(CollectionMotorActivities),
		phases: db.Collection(CollectionPhaseDetections),
	}
}

func (r *activityRepository) RecordMotorActivity(ctx context.Context, activity *domain.MotorActivity) error {
	_, err := r.motor.InsertOne(ctx, motorActivityDocument{
		ID:        primitive.NewObjectID(),
		UserID:    activity.UserID.String(),
		Status:    activity.Status,
		Timestamp: activity.Timestamp,
	})
	if err != nil {
		return oops.Code("MOTOR_ACTIVITY_WRITE_FAILED").With("user_id", activity.UserID.String()).Wrap(err)
	}
	return nil
}

func (r *activityRepository) RecordPhaseDetection(ctx context.Context, detection *domain.PhaseDetection) error {
	_, err := r.phases.InsertOne(ctx, phaseDetectionDocument{
		ID:          primitive.NewObjectID(),
		UserID:      detection.UserID.String(),
		ActivePhase: detection.ActivePhase,
		Timestamp:   detection.Timestamp,
	})
	if err != nil {
		return oops.Code("PHASE_DETECTION_WRITE_FAILED").With("user_id", detection.UserID.String()).Wrap(err)
	}
	return nil
}

func recentOptions(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

func (r *activityRepository) RecentMotorActivities(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MotorActivity, error) {
	cur, err := r.motor.Find(ctx, bson.D{{Key: "user_id", Value: userID.String()}}, recentOptions(limit))
	if err != nil {
		return nil, oops.Code("MOTOR_ACTIVITY_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	var docs []motorActivityDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, oops.Code("MOTOR_ACTIVITY_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}

	out := make([]*domain.MotorActivity, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.MotorActivity{UserID: userID, Status: d.Status, Timestamp: d.Timestamp})
	}
	return out, nil
}

func (r *activityRepository) RecentPhaseDetections(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PhaseDetection, error) {
	cur, err := r.phases.Find(ctx, bson.D{{Key: "user_id", Value: userID.String()}}, recentOptions(limit))
	if err != nil {
		return nil, oops.Code("PHASE_DETECTION_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	var docs []phaseDetectionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, oops.Code("PHASE_DETECTION_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}

	out := make([]*domain.PhaseDetection, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.PhaseDetection{UserID: userID, ActivePhase: d.ActivePhase, Timestamp: d.Timestamp})
	}
	return out, nil
}
