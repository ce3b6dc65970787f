package domain

// Domain event names published to the message-passing boundary.
// Subscribers (audit log, notifications) consume them out-of-process;
// the core never depends on subscriber behavior or ordering.
const (
	EventOrderCreated       = "order.created"
	EventPaymentApproved    = "payment.approved"
	EventPaymentFailed      = "payment.failed"
	EventTicketValidated    = "ticket.validated"
	EventReservationExpired = "reservation.expired"
)
