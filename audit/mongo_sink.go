package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"control-produccion/models"
)

// MongoSink stores finalization reports in a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, uri, dbName, collName string) (*MongoSink, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(dbName).Collection(collName),
	}, nil
}

// archivedReport is the stored document: the report plus archive metadata.
type archivedReport struct {
	ArchivedAt time.Time                 `bson:"archived_at"`
	Report     models.FinalizationReport `bson:",inline"`
}

// Archive inserts the report.
func (s *MongoSink) Archive(ctx context.Context, report *models.FinalizationReport) error {
	doc := archivedReport{ArchivedAt: time.Now().UTC(), Report: *report}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert finalization report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
