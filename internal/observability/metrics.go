package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_http_requests_total",
			Help: "Total number of HTTP requests processed by the messaging service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messaging_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	friendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_friend_requests_total",
			Help: "Total number of friend-request lifecycle events.",
		},
		[]string{"event"},
	)
	conversationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_conversations_created_total",
			Help: "Total number of conversations created.",
		},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Total number of messages stored.",
		},
	)
	contactDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_contact_denied_total",
			Help: "Total number of contact attempts denied by the authorization policy.",
		},
		[]string{"reason"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		friendRequestsTotal,
		conversationsCreatedTotal,
		messagesSentTotal,
		contactDeniedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncFriendRequestEvent(event string) {
	friendRequestsTotal.WithLabelValues(event).Inc()
}

func IncConversationCreated() {
	conversationsCreatedTotal.Inc()
}

func IncMessageSent() {
	messagesSentTotal.Inc()
}

func IncContactDenied(reason string) {
	contactDeniedTotal.WithLabelValues(reason).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
