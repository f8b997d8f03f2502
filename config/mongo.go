package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var MongoModule = fx.Module("mongo",
	fx.Provide(
		NewMongoClient,
		NewDatabase,
	),
)

// OpenMongo connects and pings before returning the client.
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func NewMongoClient(lc fx.Lifecycle, cfg *Config) (*mongo.Client, error) {
	client, err := OpenMongo(context.Background(), cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	zap.L().Info("[Mongo] connected", zap.String("db", cfg.DBName))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[Mongo] disconnecting")
			return client.Disconnect(ctx)
		},
	})
	return client, nil
}

func NewDatabase(client *mongo.Client, cfg *Config) *mongo.Database {
	return client.Database(cfg.DBName)
}
