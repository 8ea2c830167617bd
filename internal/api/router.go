package api

import (
	"net/http"

	"github.com/TableVoice/TableVoice/internal/common/logger"
	"github.com/TableVoice/TableVoice/internal/common/metrics"
	"github.com/TableVoice/TableVoice/internal/common/middleware"
	"github.com/TableVoice/TableVoice/internal/common/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 组装路由和中间件链。
// 转写接口单独限流：两次远程调用又慢又贵，不能被连点打爆。
// limiter 为 nil 时使用默认令牌桶。
func NewRouter(h *Handler, m *metrics.Metrics, log logger.Logger, serviceName string,
	limiter middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.Healthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/orders", h.Orders)
	mux.HandleFunc("/orders/", h.OrderByID)
	mux.HandleFunc("/recordings/", h.Recordings)
	mux.HandleFunc("/credential", h.Credential)

	if limiter == nil {
		limiter = middleware.NewTokenBucket(5, 1)
	}
	mux.Handle("/transcriptions", server.RateLimit(limiter)(http.HandlerFunc(h.Transcribe)))

	chain := server.Chain(
		server.Recovery(log),        // 异常恢复，避免服务崩溃
		server.Tracing(serviceName), // 链路追踪
		server.AccessLog(log),       // 访问日志
		server.Measure(m),           // 请求指标
	)
	return chain(mux)
}
