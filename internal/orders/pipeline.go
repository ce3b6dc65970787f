package orders

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

type SeatRegistry interface {
	Reserve(ctx context.Context, seatIDs []uuid.UUID, sessionID uuid.UUID) ([]domain.Seat, error)
	Release(ctx context.Context, seatIDs []uuid.UUID) ([]domain.Seat, error)
}

type DiscountLedger interface {
	Redeem(ctx context.Context, code string, total float64) (domain.Redemption, error)
}

type Catalog interface {
	SessionByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type ProductCatalog interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	PackageByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
}

type Store interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	OrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	MarkOrderCancelled(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// AddonRequest is an unpriced add-on line item as submitted by the
// caller; the pipeline resolves its price from the product catalog.
type AddonRequest struct {
	ID       uuid.UUID
	Kind     domain.AddonKind
	Quantity int
}

// Pipeline orchestrates order creation: validate session, reserve
// seats, price seats, apply discount, price add-ons, persist PENDING,
// emit OrderCreated.
type Pipeline struct {
	store    Store
	registry SeatRegistry
	ledger   DiscountLedger
	catalog  Catalog
	products ProductCatalog
	events   Publisher
	logger   observability.Logger
}

func NewPipeline(store Store, registry SeatRegistry, ledger DiscountLedger, catalog Catalog, products ProductCatalog, events Publisher, logger observability.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		registry: registry,
		ledger:   ledger,
		catalog:  catalog,
		products: products,
		events:   events,
		logger:   logger,
	}
}

func (p *Pipeline) CreateOrder(ctx context.Context, userID, sessionID uuid.UUID, seatIDs []uuid.UUID, discountCode string, addons []AddonRequest) (*domain.Order, error) {
	if _, err := p.catalog.SessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrap(domain.ErrNotFound, "session not found")
		}
		return nil, err
	}

	seats, err := p.registry.Reserve(ctx, seatIDs, sessionID)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		// Guards against registry contract drift; Reserve already
		// rejects empty input.
		return nil, errors.Wrap(domain.ErrInvalidInput, "no seats available")
	}

	order := domain.NewOrder(userID, sessionID, seatIDs)
	order.Total = domain.SeatTotal(seats)

	if discountCode != "" {
		redemption, err := p.ledger.Redeem(ctx, discountCode, order.Total)
		if err != nil {
			p.compensate(ctx, seatIDs)
			return nil, err
		}
		order.DiscountCode = discountCode
		order.DiscountAmount = redemption.Amount
		order.Total = redemption.FinalTotal
	}

	items, err := p.priceAddons(ctx, addons)
	if err != nil {
		p.compensate(ctx, seatIDs)
		return nil, err
	}
	order.AddonItems = items
	order.Total += domain.AddonTotal(items)

	if err := p.store.InsertOrder(ctx, order); err != nil {
		p.compensate(ctx, seatIDs)
		return nil, err
	}

	p.events.Publish(ctx, domain.EventOrderCreated, map[string]any{
		"order_id": order.ID,
		"user_id":  userID,
		"seat_ids": seatIDs,
		"total":    order.Total,
	})

	return order, nil
}

// priceAddons resolves each line item's unit price via a dispatch on
// the item kind. Lookups fan out; any NotFound fails the batch.
func (p *Pipeline) priceAddons(ctx context.Context, addons []AddonRequest) ([]domain.AddonItem, error) {
	if len(addons) == 0 {
		return nil, nil
	}

	resolvers := map[domain.AddonKind]func(context.Context, uuid.UUID) (*domain.CatalogItem, error){
		domain.AddonProduct: p.products.ProductByID,
		domain.AddonPackage: p.products.PackageByID,
	}

	items := make([]domain.AddonItem, len(addons))
	g, gctx := errgroup.WithContext(ctx)
	for i, addon := range addons {
		if addon.Quantity <= 0 {
			return nil, errors.Wrap(domain.ErrInvalidInput, "addon quantity must be positive")
		}
		resolve, ok := resolvers[addon.Kind]
		if !ok {
			return nil, errors.Wrapf(domain.ErrInvalidInput, "unknown addon kind %q", addon.Kind)
		}
		i, addon := i, addon
		g.Go(func() error {
			item, err := resolve(gctx, addon.ID)
			if err != nil {
				return errors.Wrapf(err, "%s %s", addon.Kind, addon.ID)
			}
			items[i] = domain.AddonItem{
				ID:       addon.ID,
				Kind:     addon.Kind,
				Quantity: addon.Quantity,
				Price:    item.Price,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// compensate releases seats reserved by a create that failed further
// down the pipeline, so they do not wait for the TTL sweep.
func (p *Pipeline) compensate(ctx context.Context, seatIDs []uuid.UUID) {
	if _, err := p.registry.Release(ctx, seatIDs); err != nil {
		p.logger.Error("failed to release seats after aborted order", err)
	}
}

// CancelOrder releases the order's seats and marks it CANCELLED. Paid
// orders are final and cannot be cancelled here.
func (p *Pipeline) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := p.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanCancel() {
		return nil, errors.Wrap(domain.ErrInvalidInput, "cannot cancel paid order")
	}
	if _, err := p.registry.Release(ctx, order.SeatIDs); err != nil {
		return nil, err
	}
	return p.store.MarkOrderCancelled(ctx, orderID)
}

func (p *Pipeline) Order(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return p.store.OrderByID(ctx, orderID)
}

func (p *Pipeline) UserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return p.store.OrdersByUser(ctx, userID)
}
