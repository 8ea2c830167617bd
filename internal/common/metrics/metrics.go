package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 服务核心指标（订单、转写流水线、HTTP）
type Metrics struct {
	OrdersCreated prometheus.Counter
	OrdersDeleted prometheus.Counter
	OrdersClosed  prometheus.Counter

	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	ExtractionRequests prometheus.Counter
	ExtractionFailures prometheus.Counter

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New 注册并返回指标集合
func New(namespace string) *Metrics {
	return &Metrics{
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders persisted",
		}),
		OrdersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_deleted_total",
			Help:      "Total number of orders deleted",
		}),
		OrdersClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_closed_total",
			Help:      "Total number of orders closed",
		}),
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_requests_total",
			Help:      "Total number of speech-to-text requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Total number of failed speech-to-text requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of the full transcribe+extract pipeline",
			Buckets:   prometheus.DefBuckets,
		}),
		ExtractionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_requests_total",
			Help:      "Total number of order extraction requests",
		}),
		ExtractionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of failed order extraction requests",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status code",
		}, []string{"method", "path", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method and path",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
