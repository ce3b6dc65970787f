package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SeatCategory string

const (
	SeatStandard     SeatCategory = "standard"
	SeatPreferential SeatCategory = "preferential"
	SeatAccessible   SeatCategory = "accessible"
	SeatVIP          SeatCategory = "vip"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatOccupied  SeatStatus = "occupied"
	SeatBlocked   SeatStatus = "blocked"
)

// Seat status is mutated only through the seat registry's atomic
// operations. Everything else treats a Seat as read-only.
type Seat struct {
	ID              uuid.UUID
	RoomID          uuid.UUID
	Row             string
	Number          int
	Category        SeatCategory
	Status          SeatStatus
	Price           float64
	IsForDisability bool
	IsForElderly    bool
	IsForPregnant   bool
}

// Label is the human-readable seat name used in conflict errors and
// printed on tickets, e.g. "A12".
func (s Seat) Label() string {
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}

type Room struct {
	ID          uuid.UUID
	Name        string
	Rows        int
	SeatsPerRow int
	IsActive    bool
	Is3D        bool
	IsIMAX      bool
	HasDolby    bool
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

type AddonKind string

const (
	AddonProduct AddonKind = "product"
	AddonPackage AddonKind = "package"
)

// AddonItem is a priced concession line item on an order. Kind
// discriminates how the item id resolves against the product catalog.
type AddonItem struct {
	ID       uuid.UUID `json:"id"`
	Kind     AddonKind `json:"kind"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

type Order struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	SessionID      uuid.UUID
	SeatIDs        []uuid.UUID
	Total          float64
	DiscountCode   string
	DiscountAmount float64
	AddonItems     []AddonItem
	Status         OrderStatus
	PaymentID      string
	CreatedAt      time.Time
}

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	SeatID      uuid.UUID
	SeatInfo    string
	Code        string
	Price       float64
	Status      TicketStatus
	ValidatedAt *time.Time
	CreatedAt   time.Time
}

type Voucher struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	ItemName    string
	Quantity    int
	Price       float64
	Code        string
	Status      TicketStatus
	ValidatedAt *time.Time
	CreatedAt   time.Time
}

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type DiscountStatus string

const (
	DiscountActive  DiscountStatus = "active"
	DiscountExpired DiscountStatus = "expired"
	DiscountUsed    DiscountStatus = "used"
)

type Discount struct {
	ID          uuid.UUID
	Code        string
	Description string
	Kind        DiscountKind
	Value       float64
	MaxUses     int
	CurrentUses int
	ExpiresAt   *time.Time
	MinPurchase float64
	Status      DiscountStatus
}

// Session and CatalogItem are projections of the external catalog
// collaborators; the core consumes them, it does not own them.
type Session struct {
	ID         uuid.UUID
	MovieTitle string
	RoomID     uuid.UUID
	StartTime  time.Time
}

type CatalogItem struct {
	ID    uuid.UUID
	Name  string
	Price float64
}
