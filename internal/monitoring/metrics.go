package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total successful user registrations",
		},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total login attempts by result",
		},
		[]string{"result"},
	)

	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_admissions_total",
			Help: "Total ticket purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	admissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_admission_duration_seconds",
			Help:    "Duration of the ticket admission transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func IncRegistration() {
	registrationsTotal.Inc()
}

func IncLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

func ObserveAdmission(outcome string, d time.Duration) {
	admissionsTotal.WithLabelValues(outcome).Inc()
	admissionDuration.Observe(d.Seconds())
}

// Handler exposes the prometheus registry as a gin handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
