package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	pendingCollection := db.Collection("pending_questions")
	pendingIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	_, err := pendingCollection.Indexes().CreateMany(context.Background(), pendingIndexes)
	if err != nil {
		return err
	}

	// Recent questions expire after 30 days
	recentCollection := db.Collection("recent_questions")
	recentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 3600),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	_, err = recentCollection.Indexes().CreateMany(context.Background(), recentIndexes)
	if err != nil {
		return err
	}

	predefinedCollection := db.Collection("predefined_questions")
	predefinedIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "question", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "source_file", Value: 1}},
		},
	}
	_, err = predefinedCollection.Indexes().CreateMany(context.Background(), predefinedIndexes)
	if err != nil {
		return err
	}

	indexedFilesCollection := db.Collection("indexed_files")
	indexedFilesIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_file", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = indexedFilesCollection.Indexes().CreateMany(context.Background(), indexedFilesIndexes)
	if err != nil {
		return err
	}

	return nil
}
