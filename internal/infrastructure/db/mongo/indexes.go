package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionAccounts  = "accounts"
	collectionTokens    = "verification_tokens"
	collectionPositions = "positions"
	collectionProjects  = "projects"
	collectionEmployees = "employees"
	collectionClients   = "clients"

	indexAccountsEmail  = "uniq_accounts_email"
	indexTokensHash     = "uniq_verification_tokens_hash"
	indexPositionsCode  = "uniq_positions_code"
	indexProjectsCode   = "uniq_projects_code"
	indexEmployeesEmail = "uniq_employees_email"
	indexClientsEmail   = "uniq_clients_email"
)

// activeUnique is a unique index that only applies to non-deleted documents,
// so a Deleted row never blocks a new Active row with the same key.
func activeUnique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{
		Keys: keys,
		Options: options.Index().
			SetName(name).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{fieldDeleted: false}),
	}
}

// EnsureIndexes creates the unique and lookup indexes every repository relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	plan := map[string][]mongo.IndexModel{
		collectionAccounts: {
			activeUnique(indexAccountsEmail, bson.D{{Key: "normalized_email", Value: 1}}),
		},
		collectionTokens: {
			{
				Keys:    bson.D{{Key: "token_hash", Value: 1}},
				Options: options.Index().SetName(indexTokensHash).SetUnique(true),
			},
			{Keys: bson.D{{Key: "account_id", Value: 1}}},
		},
		collectionPositions: {
			activeUnique(indexPositionsCode, bson.D{{Key: "code", Value: 1}}),
		},
		collectionProjects: {
			activeUnique(indexProjectsCode, bson.D{{Key: "code", Value: 1}}),
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		collectionEmployees: {
			activeUnique(indexEmployeesEmail, bson.D{{Key: "normalized_email", Value: 1}}),
		},
		collectionClients: {
			activeUnique(indexClientsEmail, bson.D{{Key: "normalized_email", Value: 1}}),
		},
	}

	for coll, models := range plan {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
