package tickets

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/observability"
)

type Store interface {
	TicketByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	TicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	TicketsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Ticket, error)
	// MarkTicketUsed flips VALID to USED as a conditional update;
	// exactly one of two concurrent validations can win.
	MarkTicketUsed(ctx context.Context, code string, at time.Time) (*domain.Ticket, error)
	CancelTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	TicketStats(ctx context.Context) (map[domain.TicketStatus]int, error)
	OrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type Catalog interface {
	SessionByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// ValidationResult is a structured accept/decline, never a raised
// failure: the gate is a door-scanner flow where a clean decline beats
// a crash.
type ValidationResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *ValidationData `json:"data,omitempty"`
}

type ValidationData struct {
	TicketID    uuid.UUID  `json:"ticketId"`
	SeatInfo    string     `json:"seatInfo"`
	Movie       string     `json:"movie,omitempty"`
	SessionTime *time.Time `json:"sessionTime,omitempty"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
}

// Gate validates redemption codes at the door and answers ticket
// queries.
type Gate struct {
	store   Store
	catalog Catalog
	events  Publisher
	logger  observability.Logger
	now     func() time.Time
}

func NewGate(store Store, catalog Catalog, events Publisher, logger observability.Logger) *Gate {
	return &Gate{store: store, catalog: catalog, events: events, logger: logger, now: time.Now}
}

// Validate enforces single use: the conditional update runs first, so
// of two concurrent scans of the same code exactly one succeeds and the
// other sees "already used".
func (g *Gate) Validate(ctx context.Context, code string) (ValidationResult, error) {
	ticket, err := g.store.MarkTicketUsed(ctx, code, g.now().UTC())
	if err == nil {
		observability.ValidationResults.WithLabelValues("granted").Inc()
		data := g.enrich(ctx, ticket)
		g.events.Publish(ctx, domain.EventTicketValidated, map[string]any{
			"ticket_id": ticket.ID,
			"order_id":  ticket.OrderID,
			"code":      code,
		})
		return ValidationResult{Success: true, Message: "Access granted", Data: data}, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return ValidationResult{}, err
	}

	// The update refused the row; look at the ticket to say why.
	ticket, err = g.store.TicketByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		observability.ValidationResults.WithLabelValues("not_found").Inc()
		return ValidationResult{Success: false, Message: "Invalid QR Code - Ticket not found"}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}

	switch ticket.Status {
	case domain.TicketUsed:
		observability.ValidationResults.WithLabelValues("already_used").Inc()
		return ValidationResult{Success: false, Message: "Ticket already used", Data: g.enrich(ctx, ticket)}, nil
	case domain.TicketCancelled:
		observability.ValidationResults.WithLabelValues("cancelled").Inc()
		return ValidationResult{Success: false, Message: "Ticket is cancelled"}, nil
	default:
		return ValidationResult{Success: false, Message: "Validation failed, try again"}, nil
	}
}

// enrich attaches movie title and session time for audit display.
// Best effort: a catalog outage degrades the response, not the scan.
func (g *Gate) enrich(ctx context.Context, ticket *domain.Ticket) *ValidationData {
	data := &ValidationData{
		TicketID:    ticket.ID,
		SeatInfo:    ticket.SeatInfo,
		ValidatedAt: ticket.ValidatedAt,
	}
	order, err := g.store.OrderByID(ctx, ticket.OrderID)
	if err != nil {
		g.logger.Warn("failed to load order for validation display", err)
		return data
	}
	session, err := g.catalog.SessionByID(ctx, order.SessionID)
	if err != nil {
		g.logger.Warn("failed to load session for validation display", err)
		return data
	}
	data.Movie = session.MovieTitle
	data.SessionTime = &session.StartTime
	return data
}

type Stats struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Used      int `json:"used"`
	Cancelled int `json:"cancelled"`
}

func (g *Gate) ValidationStats(ctx context.Context) (Stats, error) {
	counts, err := g.store.TicketStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Total:     counts[domain.TicketValid] + counts[domain.TicketUsed] + counts[domain.TicketCancelled],
		Valid:     counts[domain.TicketValid],
		Used:      counts[domain.TicketUsed],
		Cancelled: counts[domain.TicketCancelled],
	}, nil
}

func (g *Gate) Ticket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return g.store.TicketByID(ctx, id)
}

func (g *Gate) UserTickets(ctx context.Context, userID uuid.UUID) ([]*domain.Ticket, error) {
	return g.store.TicketsByUser(ctx, userID)
}

func (g *Gate) CancelTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return g.store.CancelTicket(ctx, id)
}
