package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	pageViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tavolo",
			Name:      "page_views_total",
			Help:      "Count of page views by page.",
		},
		[]string{"page"},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tavolo",
			Name:      "api_requests_total",
			Help:      "Count of remote booking API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tavolo",
			Name:      "booking_created_total",
			Help:      "Count of bookings created through this frontend.",
		},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tavolo",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled through this frontend.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(pageViews, apiRequests, bookingCreated, bookingCancelled)
	})
}

func IncPageView(page string) {
	pageViews.WithLabelValues(page).Inc()
}

func IncAPIRequest(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	apiRequests.WithLabelValues(operation, outcome).Inc()
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}
