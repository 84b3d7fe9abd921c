// Package metrics 审核决策和通知投递的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperr "Lee_Library/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "community",
			Name:      "decisions_total",
			Help:      "Community operations by outcome code.",
		},
		[]string{"op", "result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "notification",
			Name:      "emitted_total",
			Help:      "Notification records written, by type.",
		},
		[]string{"type"},
	)

	outboxDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox delivery attempts by status.",
		},
		[]string{"status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "library",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(decisions, notifications, outboxDeliveries, httpDuration)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveDecision err 为空记 ok，否则记错误码
func ObserveDecision(op string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(string(apperr.CodeOf(err)))
	}
	decisions.WithLabelValues(op, result).Inc()
}

func ObserveNotification(notificationType string, n int) {
	notifications.WithLabelValues(notificationType).Add(float64(n))
}

func ObserveDelivery(ok bool) {
	if ok {
		outboxDeliveries.WithLabelValues("sent").Inc()
		return
	}
	outboxDeliveries.WithLabelValues("failed").Inc()
}

// ObserveHTTP route 用路由模板而不是原始路径，避免标签爆炸
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
