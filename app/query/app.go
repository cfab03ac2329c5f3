package query

import (
	"context"

	"github.com/mewroo/marketx/app/query/types"
	"github.com/mewroo/marketx/pkg/db"
	"github.com/mewroo/marketx/pkg/logging"
	"github.com/mewroo/marketx/pkg/redis"
	"github.com/mewroo/marketx/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	// ClickHouse usually starts alongside this service; db.New waits for it
	// with backoff before giving up.
	financeDB, err := db.New(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize finance database", zap.Error(err))
	}

	// Initialize Redis client for response caching (optional)
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - response caching will be disabled",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for response caching")
		}
	} else {
		logger.Info("Redis disabled - responses will not be cached")
	}

	app := &types.App{
		DB:          financeDB,
		RedisClient: redisClient,
		Logger:      logger,
	}

	return app
}
