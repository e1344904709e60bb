package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/model"
)

// duplicateKeyCode is the server error code for unique-index collisions.
const duplicateKeyCode = 11000

type mongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

func openMongo(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (Backend, error) {
	uri := fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping: %v", ErrBackendUnavailable, err)
	}
	return &mongoBackend{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

func (b *mongoBackend) Capabilities() Capabilities {
	return Capabilities{ConcurrentWrites: true, DedupeOnInsert: true}
}

func (b *mongoBackend) TableExists(ctx context.Context, table string) (bool, error) {
	names, err := b.db.ListCollectionNames(ctx, bson.M{"name": table})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	return len(names) > 0, nil
}

// EnsureSchema creates the collection and its unique compound index.
// Documents carry no fixed columns, so an existing collection never
// conflicts with the logical schema.
func (b *mongoBackend) EnsureSchema(ctx context.Context, table string, schema model.Schema) error {
	exists, err := b.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := b.db.CreateCollection(ctx, table); err != nil {
		return fmt.Errorf("create collection %s: %w", table, err)
	}
	if len(schema.Key) > 0 {
		keys := bson.D{}
		for _, k := range schema.Key {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		_, err := b.db.Collection(table).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create unique index on %s: %w", table, err)
		}
	}
	b.logger.Info("created collection", "table", table, "backend", "mongo")
	return nil
}

func (b *mongoBackend) IsEmpty(ctx context.Context, table string) (bool, error) {
	if err := b.requireCollection(ctx, table); err != nil {
		return false, err
	}
	count, err := b.db.Collection(table).EstimatedDocumentCount(ctx)
	if err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return count == 0, nil
}

func (b *mongoBackend) DistinctEntities(ctx context.Context, table string) ([]string, error) {
	if err := b.requireCollection(ctx, table); err != nil {
		return nil, err
	}
	values, err := b.db.Collection(table).Distinct(ctx, model.EntityColumn, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", table, err)
	}
	entities := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			entities = append(entities, s)
		}
	}
	return entities, nil
}

func (b *mongoBackend) MaxDateByEntity(ctx context.Context, table, dateColumn string) (map[string]time.Time, error) {
	if err := b.requireCollection(ctx, table); err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + model.EntityColumn},
			{Key: "max_date", Value: bson.D{{Key: "$max", Value: "$" + dateColumn}}},
		}}},
	}
	cursor, err := b.db.Collection(table).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	marks := make(map[string]time.Time)
	for cursor.Next(ctx) {
		var row struct {
			ID      string    `bson:"_id"`
			MaxDate time.Time `bson:"max_date"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode watermark row: %w", err)
		}
		marks[row.ID] = row.MaxDate.UTC()
	}
	return marks, cursor.Err()
}

func (b *mongoBackend) MaxDate(ctx context.Context, table, dateColumn string) (time.Time, error) {
	if err := b.requireCollection(ctx, table); err != nil {
		return time.Time{}, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "max_date", Value: bson.D{{Key: "$max", Value: "$" + dateColumn}}},
		}}},
	}
	cursor, err := b.db.Collection(table).Aggregate(ctx, pipeline)
	if err != nil {
		return time.Time{}, fmt.Errorf("aggregate %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return time.Time{}, cursor.Err()
	}
	var row struct {
		MaxDate time.Time `bson:"max_date"`
	}
	if err := cursor.Decode(&row); err != nil {
		return time.Time{}, fmt.Errorf("decode watermark row: %w", err)
	}
	return row.MaxDate.UTC(), nil
}

func (b *mongoBackend) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	if err := b.requireCollection(ctx, table); err != nil {
		return false, err
	}
	err := b.db.Collection(table).FindOne(ctx, bson.M{column: value}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find in %s: %w", table, err)
	}
	return true, nil
}

// Insert writes documents unordered so a duplicate-key collision skips
// the offending document without aborting the rest of the batch.
func (b *mongoBackend) Insert(ctx context.Context, table string, schema model.Schema, records []model.Record) (InsertResult, error) {
	if len(records) == 0 {
		return InsertResult{}, nil
	}

	docs := make([]any, len(records))
	for i, r := range records {
		doc := bson.D{}
		for j, c := range schema.Columns {
			doc = append(doc, bson.E{Key: c.Name, Value: r[j]})
		}
		docs[i] = doc
	}

	res, err := b.db.Collection(table).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && allDuplicateKey(bulkErr) {
			return InsertResult{Inserted: inserted, Conflicts: len(bulkErr.WriteErrors)}, nil
		}
		return InsertResult{}, fmt.Errorf("insert into %s: %w", table, err)
	}
	return InsertResult{Inserted: inserted}, nil
}

func allDuplicateKey(bulkErr mongo.BulkWriteException) bool {
	if len(bulkErr.WriteErrors) == 0 {
		return false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}

func (b *mongoBackend) Drop(ctx context.Context, table string) error {
	if err := b.db.Collection(table).Drop(ctx); err != nil {
		return fmt.Errorf("drop collection %s: %w", table, err)
	}
	return nil
}

func (b *mongoBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *mongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

func (b *mongoBackend) requireCollection(ctx context.Context, table string) error {
	exists, err := b.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return nil
}
