package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "cinema-ticketing/internal/adapters/mongo"
	"cinema-ticketing/internal/adapters/rabbit"
	"cinema-ticketing/internal/config"
	"cinema-ticketing/internal/observability"
)

const auditQueue = "cinema.audit"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("cinema"), logger)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	consumer, err := rabbit.NewConsumer(rabbitConn, auditQueue)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	go func() {
		for d := range deliveries {
			event := d.Type
			if event == "" {
				event = d.RoutingKey
			}
			if err := audit.LogEvent(ctx, event, d.Body); err != nil {
				// Requeue so the event is not lost on a transient
				// mongo failure.
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}()
	logger.WithField("queue", auditQueue).Info("audit consumer running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown audit consumer")
}
