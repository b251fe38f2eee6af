package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Transactor runs units of work inside a MongoDB multi-document transaction.
// Transactions are never retried here; a transient failure surfaces as a
// conflict for the caller to handle.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// RunInTx starts a session transaction, runs fn with the session context and
// commits. fn errors and a cancelled ctx abort the transaction before commit.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(txOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}

		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(context.WithoutCancel(sc))
			return translate(err)
		}

		if err := ctx.Err(); err != nil {
			_ = sc.AbortTransaction(context.WithoutCancel(sc))
			return err
		}

		if err := sc.CommitTransaction(context.WithoutCancel(sc)); err != nil {
			return translate(err)
		}
		return nil
	})
}
