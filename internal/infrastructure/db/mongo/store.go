package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

const fieldDeleted = "deleted"

// RecordDoc is the persisted form of domain.Record. Deleted mirrors
// DeletedAt != nil so unique indexes can be restricted to active documents.
type RecordDoc struct {
	ID        string     `bson:"_id"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at"`
	DeletedBy *string    `bson:"deleted_by"`
	Deleted   bool       `bson:"deleted"`
}

func toRecordDoc(r domain.Record) RecordDoc {
	return RecordDoc{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		DeletedAt: r.DeletedAt,
		DeletedBy: r.DeletedBy,
		Deleted:   r.DeletedAt != nil,
	}
}

func (d RecordDoc) record() domain.Record {
	return domain.Record{
		ID:        d.ID,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		DeletedAt: utcPtr(d.DeletedAt),
		DeletedBy: d.DeletedBy,
	}
}

// store implements the lifecycle and catalog repository contracts for one
// collection. T is the domain aggregate, D its document type.
type store[T domain.Aggregate, D any] struct {
	coll         *mongo.Collection
	name         string
	toDoc        func(T) D
	fromDoc      func(D) T
	keyFilter    func(T) bson.M
	searchFields []string
}

// Create inserts a new document.
func (s *store[T, D]) Create(ctx context.Context, entity T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, s.toDoc(entity)); err != nil {
		return translate(err)
	}
	return nil
}

// FindByID loads a document whether active or deleted.
func (s *store[T, D]) FindByID(ctx context.Context, id string) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc D
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, domain.NotFound(s.name)
		}
		return zero, fmt.Errorf("find %s: %w", s.name, err)
	}
	return s.fromDoc(doc), nil
}

// Save replaces the stored document with the entity's current state.
func (s *store[T, D]) Save(ctx context.Context, entity T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": entity.GetID()}, s.toDoc(entity))
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound(s.name)
	}
	return nil
}

// HasActiveDuplicate probes for another active document with the same key.
func (s *store[T, D]) HasActiveDuplicate(ctx context.Context, entity T) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := s.keyFilter(entity)
	filter[fieldDeleted] = false
	filter["_id"] = bson.M{"$ne": entity.GetID()}

	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("probe %s uniqueness: %w", s.name, err)
	}
	return n > 0, nil
}

// List returns a page of documents ordered by id, which is time-sortable.
func (s *store[T, D]) List(ctx context.Context, f ports.ListFilter) ([]T, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if !f.IncludeDeleted {
		filter[fieldDeleted] = false
	}
	if f.Search != "" && len(s.searchFields) > 0 {
		pattern := searchPattern(f.Search)
		or := make(bson.A, 0, len(s.searchFields))
		for _, field := range s.searchFields {
			or = append(or, bson.M{field: pattern})
		}
		filter["$or"] = or
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", s.name, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", s.name, err)
	}
	defer cursor.Close(ctx)

	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", s.name, err)
	}

	items := make([]T, 0, len(docs))
	for _, d := range docs {
		items = append(items, s.fromDoc(d))
	}
	return items, total, nil
}

func searchPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
