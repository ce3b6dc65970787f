package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

// CatalogRepository backs the external catalog collaborators: movie
// sessions plus the concession products and combo packages that price
// order add-ons.
type CatalogRepository struct {
	sessions *mongo.Collection
	products *mongo.Collection
	packages *mongo.Collection
	logger   observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		sessions: db.Collection("sessions"),
		products: db.Collection("products"),
		packages: db.Collection("packages"),
		logger:   logger,
	}
}

type SessionDoc struct {
	ID         uuid.UUID `bson:"_id"`
	MovieTitle string    `bson:"movie_title"`
	RoomID     uuid.UUID `bson:"room_id"`
	StartTime  time.Time `bson:"start_time"`
	CreatedAt  time.Time `bson:"created_at"`
}

type ItemDoc struct {
	ID       uuid.UUID `bson:"_id"`
	Name     string    `bson:"name"`
	Price    float64   `bson:"price"`
	IsActive bool      `bson:"is_active"`
}

func (c *CatalogRepository) SessionByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var doc SessionDoc
	err := c.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get session", err)
		return nil, err
	}
	return &domain.Session{
		ID:         doc.ID,
		MovieTitle: doc.MovieTitle,
		RoomID:     doc.RoomID,
		StartTime:  doc.StartTime,
	}, nil
}

func (c *CatalogRepository) ProductByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	return c.itemByID(ctx, c.products, id)
}

func (c *CatalogRepository) PackageByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	return c.itemByID(ctx, c.packages, id)
}

func (c *CatalogRepository) itemByID(ctx context.Context, coll *mongo.Collection, id uuid.UUID) (*domain.CatalogItem, error) {
	var doc ItemDoc
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get catalog item", err)
		return nil, err
	}
	return &domain.CatalogItem{ID: doc.ID, Name: doc.Name, Price: doc.Price}, nil
}

func (c *CatalogRepository) CreateSession(ctx context.Context, doc SessionDoc) error {
	doc.CreatedAt = time.Now()
	_, err := c.sessions.InsertOne(ctx, doc)
	return err
}

func (c *CatalogRepository) CreateProduct(ctx context.Context, doc ItemDoc) error {
	_, err := c.products.InsertOne(ctx, doc)
	return err
}

func (c *CatalogRepository) CreatePackage(ctx context.Context, doc ItemDoc) error {
	_, err := c.packages.InsertOne(ctx, doc)
	return err
}
