package monitoring

import (
	"context"
	"encoding/json"
	"log"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	catalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_events_total",
			Help: "Current number of events in the store blob",
		},
	)

	eventsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_created_total",
			Help: "Total events created through the admin controller",
		},
	)

	storeClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_clears_total",
			Help: "Total full-store clear operations",
		},
	)

	bookingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_submissions_total",
			Help: "Total booking form submissions by outcome",
		},
		[]string{"outcome"},
	)

	formTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_form_transitions_total",
			Help: "Booking form empty/dirty transitions",
		},
		[]string{"to"},
	)

	tokenizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_tokenize_duration_seconds",
			Help:    "Duration of payment tokenization calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

// RecordEventCreated counts one admin event creation.
func RecordEventCreated() {
	eventsCreated.Inc()
}

// RecordStoreClear counts one full-store clear.
func RecordStoreClear() {
	storeClears.Inc()
}

// RecordBookingSubmission counts one submission outcome: "success",
// "failed" (collaborator) or "rejected" (validation).
func RecordBookingSubmission(outcome string) {
	bookingSubmissions.WithLabelValues(outcome).Inc()
}

// RecordFormTransition counts an empty/dirty flip of the booking form.
func RecordFormTransition(to string) {
	formTransitions.WithLabelValues(to).Inc()
}

// ObserveTokenizeDuration records how long a tokenization call took.
func ObserveTokenizeDuration(d time.Duration) {
	tokenizeDuration.Observe(d.Seconds())
}

// Monitor periodically samples store-level gauges from Redis.
type Monitor struct {
	redis    *redis.Client
	eventKey string
}

func NewMonitor(redisClient *redis.Client, eventKey string) *Monitor {
	return &Monitor{redis: redisClient, eventKey: eventKey}
}

// Start samples gauges until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	goroutineCount.Set(float64(runtime.NumGoroutine()))

	data, err := m.redis.Get(ctx, m.eventKey).Bytes()
	if err == redis.Nil {
		catalogSize.Set(0)
		return
	} else if err != nil {
		log.Printf("monitoring: sampling store size: %v", err)
		return
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		catalogSize.Set(0)
		return
	}
	catalogSize.Set(float64(len(records)))
}
