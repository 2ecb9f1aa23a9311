package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dailyquest",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailyquest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dailyquest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailyquest",
			Subsystem: "batch",
			Name:      "job_runs_total",
			Help:      "Total number of batch job runs.",
		},
		[]string{"job", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dailyquest",
			Subsystem: "batch",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of batch job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"job"},
	)

	jobItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailyquest",
			Subsystem: "batch",
			Name:      "items_written_total",
			Help:      "Total number of items written by batch jobs.",
		},
		[]string{"job"},
	)

	achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailyquest",
			Subsystem: "achievement",
			Name:      "unlocked_total",
			Help:      "Total number of achievements unlocked.",
		},
		[]string{"type"},
	)

	notificationsPushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailyquest",
			Subsystem: "notification",
			Name:      "pushed_total",
			Help:      "Total number of notification deliveries.",
		},
		[]string{"channel", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		jobRuns,
		jobDuration,
		jobItems,
		achievementsUnlocked,
		notificationsPushed,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics labelled with the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordJobRun(job, status string, duration time.Duration, written int) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	jobRuns.WithLabelValues(job, status).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	jobItems.WithLabelValues(job).Add(float64(written))
}

func RecordAchievementUnlocked(achievementType string) {
	achievementsUnlocked.WithLabelValues(achievementType).Inc()
}

func RecordNotificationPush(channel string, success bool) {
	notificationsPushed.WithLabelValues(channel, strconv.FormatBool(success)).Inc()
}
