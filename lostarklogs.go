// Package lostarklogs assembles the combat-log system: MongoDB persistence,
// cached filtered search, submission validation and event publishing behind
// a single client.
package lostarklogs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guy0090/lostarklogs/cache"
	"github.com/guy0090/lostarklogs/config"
	"github.com/guy0090/lostarklogs/events"
	"github.com/guy0090/lostarklogs/metrics"
	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/service"
	"github.com/guy0090/lostarklogs/store"
	"github.com/guy0090/lostarklogs/validate"
)

// Client is an opened log system handle. All methods delegate to the
// underlying service; Close releases the backing connections.
type Client struct {
	svc       *service.Service
	mongo     *mongo.Client
	publisher events.Publisher
}

// Open connects to MongoDB, and to Redis and NATS when configured, and
// returns a ready Client. An empty RedisAddr selects the in-process cache;
// an empty NATSURL disables event publishing.
func Open(ctx context.Context, cfg *config.Config) (*Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	closeMongo := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			slog.Error("failed to disconnect mongodb", "error", err)
		}
	}

	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		closeMongo()
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	st := store.NewMongoStore(mongoClient, cfg.MongoDB)
	if err := st.EnsureIndexes(ctx); err != nil {
		slog.Warn("failed to create indexes", "error", err)
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			closeMongo()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		c = cache.NewRedis(rdb)
		slog.Info("using redis cache", "addr", cfg.RedisAddr)
	} else {
		c = cache.NewMemory()
		slog.Info("using in-process cache")
	}

	validator, err := validate.New(cfg.StrictValidation, validate.DefaultRegistry())
	if err != nil {
		closeMongo()
		return nil, fmt.Errorf("compile log schema: %w", err)
	}

	publisher := events.NewPublisher(cfg.NATSURL)

	slog.Info("log store opened",
		"environment", cfg.Environment,
		"db", cfg.MongoDB,
	)

	return &Client{
		svc:       service.New(st, c, validator, publisher, metrics.NewMetrics()),
		mongo:     mongoClient,
		publisher: publisher,
	}, nil
}

// SearchLogs runs a filtered, paginated log search.
func (c *Client) SearchLogs(ctx context.Context, filter model.LogFilter) (model.SearchResult, error) {
	return c.svc.SearchLogs(ctx, filter)
}

// GetLog loads one log by ID, through the cache unless bypassCache is set.
func (c *Client) GetLog(ctx context.Context, id string, bypassCache bool) (model.Log, error) {
	return c.svc.GetLog(ctx, id, bypassCache)
}

// CreateLog validates and persists a submitted log.
func (c *Client) CreateLog(ctx context.Context, log model.Log) (model.Log, error) {
	return c.svc.CreateLog(ctx, log)
}

// DeleteLog removes one log and evicts its cached copy.
func (c *Client) DeleteLog(ctx context.Context, id string) error {
	return c.svc.DeleteLog(ctx, id)
}

// DeleteLogsByCreator removes every log owned by the given creator.
func (c *Client) DeleteLogsByCreator(ctx context.Context, creator string) (int64, error) {
	return c.svc.DeleteLogsByCreator(ctx, creator)
}

// UniqueEntities reports the distinct (npcId, type) pairs seen across all
// logs, restricted to the given types when any are named.
func (c *Client) UniqueEntities(ctx context.Context, types []model.EntityType) ([]model.EntityPair, error) {
	return c.svc.UniqueEntities(ctx, types)
}

// Close releases the event publisher and the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if err := c.publisher.Close(); err != nil {
		slog.Warn("failed to close event publisher", "error", err)
	}

	disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.mongo.Disconnect(disconnectCtx)
}
