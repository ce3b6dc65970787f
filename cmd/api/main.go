package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cinema-ticketing/internal/adapters/crdb"
	mongoadapter "cinema-ticketing/internal/adapters/mongo"
	"cinema-ticketing/internal/adapters/rabbit"
	redisadapter "cinema-ticketing/internal/adapters/redis"
	"cinema-ticketing/internal/config"
	"cinema-ticketing/internal/discounts"
	httphandler "cinema-ticketing/internal/http"
	"cinema-ticketing/internal/idempotency"
	"cinema-ticketing/internal/observability"
	"cinema-ticketing/internal/orders"
	"cinema-ticketing/internal/payments"
	"cinema-ticketing/internal/ratelimit"
	"cinema-ticketing/internal/seats"
	"cinema-ticketing/internal/tickets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	catalog := mongoadapter.NewCatalogRepository(mongoClient.Database("cinema"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.New(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := ratelimit.New(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	publisher, err := rabbit.NewPublisher(rabbitConn, logger)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	registry := seats.NewRegistry(repo, cache, cache, cfg.SeatLockTTL, logger)
	ledger := discounts.NewLedger(repo, logger)
	pipeline := orders.NewPipeline(repo, registry, ledger, catalog, catalog, publisher, logger)
	settlement := payments.NewSettlement(repo, registry, publisher, logger)
	gate := tickets.NewGate(repo, catalog, publisher, logger)

	handlers := httphandler.NewHandlers(registry, pipeline, ledger, settlement, gate, idemp)
	router := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
