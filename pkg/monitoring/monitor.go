package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assessment_attempts_started_total",
		Help: "Attempts created by StartAttempt",
	})

	AttemptsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assessment_attempts_finalized_total",
		Help: "Attempts moved to the submitted state",
	})

	AnswersGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_answers_graded_total",
			Help: "Answers graded at submission time",
		},
		[]string{"type", "correct"},
	)

	AttemptPercentage = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assessment_attempt_percentage",
		Help:    "Percentage of finalized attempts",
		Buckets: []float64{10, 25, 50, 75, 90, 100},
	})

	XPAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progression_xp_awarded_total",
		Help: "Sum of XP granted by the ledger",
	})

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progression_level_ups_total",
		Help: "Level-up events emitted",
	})

	CASConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_cas_conflicts_total",
			Help: "Compare-and-swap mismatches, by record kind and outcome",
		},
		[]string{"record", "outcome"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsFinalized,
			AnswersGraded,
			AttemptPercentage,
			XPAwarded,
			LevelUps,
			CASConflicts,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
