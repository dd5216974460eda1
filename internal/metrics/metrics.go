package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pitchup",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by result.",
	}, []string{"result"})

	PaymentEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "payment_events_total",
		Help:      "Verified payment events by outcome.",
	}, []string{"outcome"})

	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "cancellations_total",
		Help:      "Cancellation attempts by result.",
	}, []string{"result"})

	SlotsReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "slots_reclaimed_total",
		Help:      "Expired slot locks returned to available.",
	})

	SlotsSeededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "slots_seeded_total",
		Help:      "Slots created by the seeding job.",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchup",
		Name:      "notifications_total",
		Help:      "Confirmation notifications by result.",
	}, []string{"result"})
)

// Result labels shared by the counters.
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultSkipped  = "skipped"
)
