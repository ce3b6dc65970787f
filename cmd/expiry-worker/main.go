package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"

	"cinema-ticketing/internal/adapters/crdb"
	"cinema-ticketing/internal/adapters/rabbit"
	redisadapter "cinema-ticketing/internal/adapters/redis"
	"cinema-ticketing/internal/config"
	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
	"cinema-ticketing/internal/seats"
)

const sweepBatchSize = 100

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

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)

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
	worker := NewExpiryWorker(repo, registry, publisher, cfg.ReservationTTL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker sweeps PENDING orders older than the reservation TTL:
// their seats return to AVAILABLE and the order becomes EXPIRED.
type ExpiryWorker struct {
	repo      *crdb.Repository
	registry  *seats.Registry
	publisher *rabbit.Publisher
	ttl       time.Duration
	logger    observability.Logger
}

func NewExpiryWorker(repo *crdb.Repository, registry *seats.Registry, publisher *rabbit.Publisher, ttl time.Duration, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, registry: registry, publisher: publisher, ttl: ttl, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.ttl)
	orders, err := w.repo.ExpiredPendingOrders(ctx, cutoff, sweepBatchSize)
	if err != nil {
		w.logger.Error("failed to list expired orders", err)
		return
	}
	for _, order := range orders {
		if err := w.expireWithRetry(ctx, order); err != nil {
			w.logger.WithField("order_id", order.ID).Error("failed to expire order after retries", err)
		}
	}
}

func (w *ExpiryWorker) expireWithRetry(ctx context.Context, order *domain.Order) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = w.expire(ctx, order); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func (w *ExpiryWorker) expire(ctx context.Context, order *domain.Order) error {
	// The conditional update loses to a concurrent payment or cancel;
	// seats are only released when this sweep owns the transition.
	expired, err := w.repo.MarkOrderExpired(ctx, order.ID)
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	if _, err := w.registry.Release(ctx, order.SeatIDs); err != nil {
		return err
	}

	observability.ExpiredReservations.Inc()
	w.publisher.Publish(ctx, domain.EventReservationExpired, map[string]any{
		"order_id": order.ID,
		"seat_ids": order.SeatIDs,
	})
	return nil
}
