package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cinema-ticketing/internal/discounts"
	"cinema-ticketing/internal/domain"
	"cinema-ticketing/internal/idempotency"
	"cinema-ticketing/internal/orders"
	"cinema-ticketing/internal/payments"
	"cinema-ticketing/internal/seats"
	"cinema-ticketing/internal/tickets"
)

type Handlers struct {
	registry   *seats.Registry
	pipeline   *orders.Pipeline
	ledger     *discounts.Ledger
	settlement *payments.Settlement
	gate       *tickets.Gate
	idemp      *idempotency.Idempotency
}

func NewHandlers(registry *seats.Registry, pipeline *orders.Pipeline, ledger *discounts.Ledger, settlement *payments.Settlement, gate *tickets.Gate, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		registry:   registry,
		pipeline:   pipeline,
		ledger:     ledger,
		settlement: settlement,
		gate:       gate,
		idemp:      idemp,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

// writeError maps domain sentinels onto status codes. A contested
// reservation answers 409 with the blocking seat labels so the client
// can highlight them.
func writeError(w http.ResponseWriter, err error) {
	var unavailable *domain.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": unavailable.Error(),
			"seats": unavailable.Labels,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDiscountLimitReached):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrDiscountExpired),
		errors.Is(err, domain.ErrMinPurchaseNotMet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(domain.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

// replay answers a repeated Idempotency-Key with the stored response
// and reports whether it did.
func (h *Handlers) replay(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return true
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return true
	}
	return false
}

func (h *Handlers) remember(r *http.Request, status int, body []byte) {
	key := r.Header.Get("Idempotency-Key")
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: body})
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Is3D     bool   `json:"is3D"`
		IsIMAX   bool   `json:"isIMAX"`
		HasDolby bool   `json:"hasDolby"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	room, err := h.registry.CreateRoom(r.Context(), domain.Room{
		Name:     req.Name,
		Is3D:     req.Is3D,
		IsIMAX:   req.IsIMAX,
		HasDolby: req.HasDolby,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse(room))
}

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.registry.Rooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]map[string]any, len(rooms))
	for i := range rooms {
		resp[i] = roomResponse(&rooms[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	room, err := h.registry.Room(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse(room))
}

func roomResponse(room *domain.Room) map[string]any {
	return map[string]any{
		"id":          room.ID,
		"name":        room.Name,
		"rows":        room.Rows,
		"seatsPerRow": room.SeatsPerRow,
		"isActive":    room.IsActive,
		"is3D":        room.Is3D,
		"isIMAX":      room.IsIMAX,
		"hasDolby":    room.HasDolby,
	}
}

func (h *Handlers) GenerateSeats(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Rows        int              `json:"rows"`
		SeatsPerRow int              `json:"seatsPerRow"`
		Specs       []domain.RowSpec `json:"specs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	generated, err := h.registry.GenerateSeats(r.Context(), roomID, req.Rows, req.SeatsPerRow, req.Specs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"generated": len(generated)})
}

func (h *Handlers) GetLayout(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	layout, err := h.registry.Layout(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.replay(w, r) {
		return
	}

	var req struct {
		UserID       uuid.UUID `json:"user_id"`
		SessionID    uuid.UUID `json:"session_id"`
		SeatIDs      []uuid.UUID `json:"seat_ids"`
		DiscountCode string    `json:"discount_code"`
		Addons       []struct {
			ID       uuid.UUID       `json:"id"`
			Kind     domain.AddonKind `json:"kind"`
			Quantity int             `json:"quantity"`
		} `json:"addons"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addons := make([]orders.AddonRequest, len(req.Addons))
	for i, a := range req.Addons {
		addons[i] = orders.AddonRequest{ID: a.ID, Kind: a.Kind, Quantity: a.Quantity}
	}

	order, err := h.pipeline.CreateOrder(r.Context(), req.UserID, req.SessionID, req.SeatIDs, req.DiscountCode, addons)
	if err != nil {
		writeError(w, err)
		return
	}

	body := writeJSON(w, http.StatusCreated, orderResponse(order))
	h.remember(r, http.StatusCreated, body)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.pipeline.Order(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.pipeline.UserOrders(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]map[string]any, len(list))
	for i, order := range list {
		resp[i] = orderResponse(order)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.pipeline.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func orderResponse(order *domain.Order) map[string]any {
	return map[string]any{
		"id":              order.ID,
		"user_id":         order.UserID,
		"session_id":      order.SessionID,
		"seat_ids":        order.SeatIDs,
		"total":           order.Total,
		"discount_code":   order.DiscountCode,
		"discount_amount": order.DiscountAmount,
		"addons":          order.AddonItems,
		"status":          order.Status,
		"created_at":      order.CreatedAt,
	}
}

func (h *Handlers) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string              `json:"code"`
		Description string              `json:"description"`
		Kind        domain.DiscountKind `json:"kind"`
		Value       float64             `json:"value"`
		MaxUses     int                 `json:"max_uses"`
		ExpiresAt   *string             `json:"expires_at"`
		MinPurchase float64             `json:"min_purchase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d := domain.Discount{
		Code:        req.Code,
		Description: req.Description,
		Kind:        req.Kind,
		Value:       req.Value,
		MaxUses:     req.MaxUses,
		MinPurchase: req.MinPurchase,
	}
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			http.Error(w, "invalid expires_at", http.StatusBadRequest)
			return
		}
		d.ExpiresAt = &t
	}

	created, err := h.ledger.Create(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, discountResponse(created))
}

func (h *Handlers) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]map[string]any, len(list))
	for i, d := range list {
		resp[i] = discountResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

func discountResponse(d *domain.Discount) map[string]any {
	return map[string]any{
		"id":           d.ID,
		"code":         d.Code,
		"description":  d.Description,
		"kind":         d.Kind,
		"value":        d.Value,
		"max_uses":     d.MaxUses,
		"current_uses": d.CurrentUses,
		"expires_at":   d.ExpiresAt,
		"min_purchase": d.MinPurchase,
		"status":       d.Status,
	}
}

func (h *Handlers) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	valid, err := h.ledger.IsValid(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "valid": valid})
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h.replay(w, r) {
		return
	}

	var req struct {
		OrderID uuid.UUID `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	paymentID, clientSecret, err := h.settlement.CreatePaymentIntent(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}

	body := writeJSON(w, http.StatusCreated, map[string]any{
		"payment_id":    paymentID,
		"client_secret": clientSecret,
	})
	h.remember(r, http.StatusCreated, body)
}

func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID   uuid.UUID `json:"order_id"`
		PaymentID string    `json:"payment_id"`
		Outcome   string    `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.settlement.HandleOutcome(r.Context(), req.OrderID, req.PaymentID, req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": result.OrderID,
		"settled":  result.Settled,
	})
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "orderId")
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.settlement.Confirm(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handlers) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"qrCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.gate.Validate(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	// Declines are a 200 with success=false; the scanner treats the
	// transport as healthy and shows the message.
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ValidationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.gate.ValidationStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.gate.Ticket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketResponse(ticket))
}

func (h *Handlers) ListUserTickets(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.gate.UserTickets(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]map[string]any, len(list))
	for i, t := range list {
		resp[i] = ticketResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.gate.CancelTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketResponse(ticket))
}

func ticketResponse(t *domain.Ticket) map[string]any {
	return map[string]any{
		"id":           t.ID,
		"order_id":     t.OrderID,
		"seat_id":      t.SeatID,
		"seat_info":    t.SeatInfo,
		"code":         t.Code,
		"price":        t.Price,
		"status":       t.Status,
		"validated_at": t.ValidatedAt,
		"created_at":   t.CreatedAt,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
