package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type sessionDocument struct {
	ID        string                 `bson:"_id"`
	UserID    string                 `bson:"user_id"`
	TokenHash string                 `bson:"token_hash"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"created_at"`
	ExpiresAt time.Time              `bson:"expires_at"`
}

func (d *sessionDocument) toDomain() (*domain.Session, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("id", d.ID).Wrap(err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("user_id", d.UserID).Wrap(err)
	}
	return &domain.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: d.TokenHash,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}, nil
}

type sessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *sessionRepository {
	return &sessionRepository{coll: db.Collection(CollectionSessions)}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.coll.InsertOne(ctx, sessionDocument{
		ID:        session.ID.String(),
		UserID:    session.UserID.String(),
		TokenHash: session.TokenHash,
		Metadata:  session.Metadata,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("user_id", session.UserID.String()).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var doc sessionDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "token_hash", Value: tokenHash}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}
	return doc.toDomain()
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "token_hash", Value: tokenHash}}); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID.String()}}); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}}})
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return res.DeletedCount, nil
}
