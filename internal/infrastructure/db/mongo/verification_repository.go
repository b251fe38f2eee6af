package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

type verificationTokenDoc struct {
	ID        string     `bson:"_id"`
	AccountID string     `bson:"account_id"`
	TokenHash string     `bson:"token_hash"`
	ExpiresAt time.Time  `bson:"expires_at"`
	Used      bool       `bson:"used"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

// VerificationTokenRepository persists hashed verification tokens. Records
// are never deleted.
type VerificationTokenRepository struct {
	coll *mongo.Collection
}

var _ ports.VerificationTokenRepository = (*VerificationTokenRepository)(nil)

func NewVerificationTokenRepository(db *mongo.Database) *VerificationTokenRepository {
	return &VerificationTokenRepository{coll: db.Collection(collectionTokens)}
}

func (r *VerificationTokenRepository) Create(ctx context.Context, t *domain.VerificationToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := verificationTokenDoc{
		ID:        t.ID,
		AccountID: t.AccountID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
		UsedAt:    t.UsedAt,
		CreatedAt: t.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	return nil
}

func (r *VerificationTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc verificationTokenDoc
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("verification token")
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}

	return &domain.VerificationToken{
		ID:        doc.ID,
		AccountID: doc.AccountID,
		TokenHash: doc.TokenHash,
		ExpiresAt: doc.ExpiresAt.UTC(),
		Used:      doc.Used,
		UsedAt:    utcPtr(doc.UsedAt),
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

// MarkUsed sets used=true only while it is still false, so of two concurrent
// consumers exactly one matches the filter.
func (r *VerificationTokenRepository) MarkUsed(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("check verification token: %w", err)
	}
	if n == 0 {
		return domain.NotFound("verification token")
	}
	return domain.Conflict("email address has already been verified", "")
}
