package mongo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cinema-ticketing/internal/observability"
)

// AuditLogger persists consumed domain events for audit display. It is
// a subscriber on the event boundary; the core never waits for it.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Event     string    `bson:"event"`
	Timestamp time.Time `bson:"timestamp"`
	Payload   bson.M    `bson:"payload"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, event string, payload []byte) error {
	var data bson.M
	if err := json.Unmarshal(payload, &data); err != nil {
		data = bson.M{"raw": string(payload)}
	}
	log := AuditLog{
		ID:        uuid.New(),
		Event:     event,
		Timestamp: time.Now(),
		Payload:   data,
	}
	if _, err := a.coll.InsertOne(ctx, log); err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}
