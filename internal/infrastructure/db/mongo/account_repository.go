package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

type accountDoc struct {
	RecordDoc       `bson:",inline"`
	Email           string `bson:"email"`
	NormalizedEmail string `bson:"normalized_email"`
	PasswordHash    string `bson:"password_hash"`
	RoleID          int    `bson:"role_id"`
	StatusID        int    `bson:"status_id"`
}

// AccountRepository persists accounts in the accounts collection.
type AccountRepository struct {
	*store[*domain.Account, accountDoc]
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{store: &store[*domain.Account, accountDoc]{
		coll:    db.Collection(collectionAccounts),
		name:    "account",
		toDoc:   toAccountDoc,
		fromDoc: fromAccountDoc,
		keyFilter: func(a *domain.Account) bson.M {
			return bson.M{"normalized_email": a.NormalizedEmail}
		},
		searchFields: []string{"normalized_email"},
	}}
}

// FindByNormalizedEmail returns the active account holding normalizedEmail.
func (r *AccountRepository) FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	err := r.coll.FindOne(ctx, bson.M{"normalized_email": normalizedEmail, fieldDeleted: false}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("account")
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return fromAccountDoc(doc), nil
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		RecordDoc:       toRecordDoc(a.Record),
		Email:           a.Email,
		NormalizedEmail: a.NormalizedEmail,
		PasswordHash:    a.PasswordHash,
		RoleID:          int(a.Role),
		StatusID:        int(a.Status),
	}
}

func fromAccountDoc(d accountDoc) *domain.Account {
	return &domain.Account{
		Record:          d.record(),
		Email:           d.Email,
		NormalizedEmail: d.NormalizedEmail,
		PasswordHash:    d.PasswordHash,
		Role:            domain.Role(d.RoleID),
		Status:          domain.AccountStatus(d.StatusID),
	}
}
