// Package mongo mirrors accepted detections into a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"smartdate/internal/dto"
	"smartdate/internal/model"
)

// PingRetries bounds how often the startup ping is retried.
const PingRetries = 3

// DetectionRepository implements repository.DetectionRepository on a
// MongoDB collection of {timestamp, label, confidence} documents.
type DetectionRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials uri and pings the server with a bounded Fibonacci backoff.
// The returned repository owns the client.
func Connect(ctx context.Context, uri, database, collection string) (*DetectionRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	b := retry.NewFibonacci(1 * time.Second)
	if err := retry.Do(ctx, retry.WithMaxRetries(PingRetries, b), func(ctx context.Context) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &DetectionRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Insert stores rec as a new document.
func (r *DetectionRepository) Insert(ctx context.Context, rec *model.Record) error {
	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

// Recent returns the newest documents first, optionally for a single label.
func (r *DetectionRepository) Recent(ctx context.Context, filter dto.HistoryFilter) ([]model.Record, error) {
	query := bson.D{}
	if filter.Label != "" {
		query = bson.D{{Key: "label", Value: filter.Label}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(filter.EffectiveLimit()))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}

	records := make([]model.Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}
	return records, nil
}

// Stats aggregates totals over the collection; Today counts documents at or
// after since.
func (r *DetectionRepository) Stats(ctx context.Context, since time.Time) (*model.Stats, error) {
	stats := &model.Stats{ByLabel: make([]model.LabelCount, 0)}

	total, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	stats.Total = total

	today, err := r.collection.CountDocuments(ctx, bson.D{
		{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: model.EpochSeconds(since)}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count today's detections: %w", err)
	}
	stats.Today = today

	avgCursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$confidence"}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate confidence: %w", err)
	}
	var avg []struct {
		Avg float64 `bson:"avg"`
	}
	if err := avgCursor.All(ctx, &avg); err != nil {
		return nil, fmt.Errorf("failed to decode confidence: %w", err)
	}
	if len(avg) > 0 {
		stats.AvgConfidence = avg[0].Avg
	}

	labelCursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$label"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate labels: %w", err)
	}
	var groups []struct {
		Label string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := labelCursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode labels: %w", err)
	}
	for _, g := range groups {
		stats.ByLabel = append(stats.ByLabel, model.LabelCount{Label: g.Label, Count: g.Count})
	}

	return stats, nil
}

// Close disconnects the client.
func (r *DetectionRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
