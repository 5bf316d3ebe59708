package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "old_vibes/docs"
	"old_vibes/internal/chat/app"
	"old_vibes/internal/chat/domain"
	"old_vibes/internal/chat/repository"
	"old_vibes/internal/chat/router"
	"old_vibes/pkg/config"
	"old_vibes/pkg/database"
	"old_vibes/pkg/logger"
	testtool "old_vibes/pkg/test_tool"
	"old_vibes/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

const grpcReadyWait = 10 * time.Second

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	rules := cfg.Rules.WithDefaults()
	if cfg.JWT.Secret != "" {
		token.SetSecret(cfg.JWT.Secret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. conversation / message store
	store, closeStore := newChatStore(ctx, cfg)
	defer closeStore()

	// 2. collaborators
	listings, closeListings := newListingDirectory(cfg, rules)
	defer closeListings()
	users, closeUsers := newUserDirectory(cfg)
	defer closeUsers()
	signer := newAttachmentSigner(cfg)
	events, closeEvents := newEventPublisher(cfg)
	defer closeEvents()

	// 3. use case / gateway
	uc := app.NewChatUseCase(store, listings, users, signer, events, rules)
	gateway := app.NewGateway(uc)

	worker := app.NewProjectionWorker(store, rules.ProjectionInterval)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Error("projection worker stopped", zap.Error(err))
		}
	}()

	// 4. Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewChatRestHandler(uc, gateway),
		app.NewChatWebsocketHandler(gateway, rules.PingInterval),
	)

	testtool.StartPprof()

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.Shutdown(); err != nil {
			logger.Log.Error("fiber shutdown failed", zap.Error(err))
		}
	}()

	port := cfg.Port
	if port == "" {
		port = config.EnvConfig.ChatServicePort
	}
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(":" + port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

func newChatStore(ctx context.Context, cfg config.Chat) (*repository.ChatStore, func()) {
	if cfg.Storage.Driver == "memory" {
		logger.Log.Warn("using in-memory chat store, data is lost on restart")
		return repository.NewChatStore(repository.NewMemoryConversationRepository(), repository.NewMemoryMessageRepository()), func() {}
	}

	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}

	if err := mongo.EnsureIndexes(ctx, domain.ConversationCollection, repository.ConversationIndexes()); err != nil {
		logger.Log.Fatal("ensure conversation indexes failed", zap.Error(err))
	}
	if err := mongo.EnsureIndexes(ctx, domain.MessageCollection, repository.MessageIndexes()); err != nil {
		logger.Log.Fatal("ensure message indexes failed", zap.Error(err))
	}

	store := repository.NewChatStore(
		repository.NewMongoConversationRepository(mongo.Database),
		repository.NewMongoMessageRepository(mongo.Database),
	)
	return store, func() { _ = mongo.Close(context.Background()) }
}

func newListingDirectory(cfg config.Chat, rules config.ChatRules) (repository.ListingDirectory, func()) {
	addr := cfg.Listing.Address()
	if addr == "" {
		logger.Log.Warn("listing service not configured, every listing lookup returns not found")
		return repository.NewStaticListingDirectory(), func() {}
	}

	conn, err := database.CreateGRPCClient(addr, grpcReadyWait)
	if err != nil {
		logger.Log.Fatal("connect listing service failed", zap.String("address", addr), zap.Error(err))
	}
	var listings repository.ListingDirectory = repository.NewGRPCListingDirectory(conn, 0)

	masterName, sentinels := config.GetRedisSetting()
	if cfg.Redis.Addr == "" && len(sentinels) == 0 {
		return listings, func() { conn.Close() }
	}

	redisClient, err := database.NewRedisClient(database.RedisConnection{
		Addr:          cfg.Redis.Addr,
		MasterName:    masterName,
		SentinelAddrs: sentinels,
		DB:            cfg.Redis.RedisDB,
	})
	if err != nil {
		logger.Log.Warn("redis unavailable, listing lookups are not cached", zap.Error(err))
		return listings, func() { conn.Close() }
	}

	cache := database.NewRedisRepository[domain.ListingSummary](redisClient)
	return repository.NewCachedListingDirectory(listings, cache, rules.ListingCacheTTL), func() {
		redisClient.Close()
		conn.Close()
	}
}

func newUserDirectory(cfg config.Chat) (repository.UserDirectory, func()) {
	pg := cfg.PostgreSQL
	if pg.Host == "" {
		logger.Log.Warn("postgres not configured, participant profiles fall back to ids")
		return repository.NewStaticUserDirectory(), func() {}
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", pg.User, pg.Password, pg.Host, pg.Port, pg.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    pg.RetryCount,
		RetryInterval: time.Duration(pg.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", pg.Host), zap.Error(err))
	}
	return repository.NewPGUserDirectory(pool), pool.Close
}

func newAttachmentSigner(cfg config.Chat) repository.AttachmentSigner {
	if cfg.MinIO.Host == "" {
		return repository.NewPassthroughSigner()
	}

	client, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("connect minio failed", zap.Error(err))
	}
	return repository.NewMinIOAttachmentSigner(client, cfg.MinIO.PresignTTL)
}

func newEventPublisher(cfg config.Chat) (repository.EventPublisher, func()) {
	ev := cfg.Events
	switch ev.Driver {
	case "kafka":
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       ev.Brokers,
			Topic:         ev.Topic,
			RetryCount:    ev.RetryCount,
			RetryInterval: time.Duration(ev.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect kafka failed", zap.Error(err))
		}
		return repository.NewKafkaEventPublisher(writer), func() { _ = writer.Close() }

	case "rabbitmq":
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    ev.RabbitURL,
			RetryCount:    ev.RetryCount,
			RetryInterval: time.Duration(ev.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq failed", zap.Error(err))
		}
		ch, err := database.GetRabbitMQChannelWithRetry(conn, ev.RetryCount, time.Duration(ev.RetryInterval))
		if err != nil {
			logger.Log.Fatal("open rabbitmq channel failed", zap.Error(err))
		}
		if err := database.DeclareTopicExchange(ch, ev.Exchange); err != nil {
			logger.Log.Fatal("declare exchange failed", zap.String("exchange", ev.Exchange), zap.Error(err))
		}
		return repository.NewRabbitEventPublisher(database.NewRabbitRepository(ch), ev.Exchange), func() {
			ch.Close()
			conn.Close()
		}

	default:
		return repository.NewNoopEventPublisher(), func() {}
	}
}
