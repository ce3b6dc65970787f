package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	ReservationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_reservation_conflicts_total",
			Help: "Seat reservations rejected because a seat was not available",
		},
	)

	DiscountRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_discount_redemptions_total",
			Help: "Discount redemption attempts by result",
		},
		[]string{"result"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_tickets_issued_total",
			Help: "Tickets issued on payment approval",
		},
	)

	ValidationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_ticket_validations_total",
			Help: "Door validations by result",
		},
		[]string{"result"},
	)

	ExpiredReservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_expired_reservations_total",
			Help: "Orders expired by the reservation TTL sweep",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinema_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
