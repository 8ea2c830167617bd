package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TableVoice/TableVoice/internal/common/logger"
	"github.com/TableVoice/TableVoice/internal/common/metrics"
	"github.com/TableVoice/TableVoice/internal/common/middleware"
	"github.com/TableVoice/TableVoice/internal/credential"
	"github.com/TableVoice/TableVoice/internal/order"
	"github.com/TableVoice/TableVoice/internal/recording"
	"github.com/TableVoice/TableVoice/internal/transcription"
)

// Handler 订单服务的 HTTP 处理器集合
type Handler struct {
	store    *order.Store
	pipeline transcription.Processor
	creds    credential.Store
	session  *recording.Session
	capture  *recording.BufferSource
	breaker  *middleware.CircuitBreaker
	metrics  *metrics.Metrics
	log      logger.Logger
}

func NewHandler(store *order.Store, pipeline transcription.Processor, creds credential.Store,
	session *recording.Session, capture *recording.BufferSource,
	m *metrics.Metrics, log logger.Logger) *Handler {
	return &Handler{
		store:    store,
		pipeline: pipeline,
		creds:    creds,
		session:  session,
		capture:  capture,
		breaker:  middleware.NewCircuitBreaker("transcription-upstream", 5, 30*time.Second),
		metrics:  m,
		log:      log,
	}
}

// Orders 处理 /orders：GET 列表/检索，POST 创建。
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOrders(w, r)
	case http.MethodPost:
		h.createOrder(w, r)
	default:
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var (
		orders []order.Order
		err    error
	)
	if query != "" {
		orders, err = h.store.Search(r.Context(), query)
	} else {
		orders, err = h.store.GetAll(r.Context())
	}
	if err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in order.Order
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Errorf("invalid order payload: %w", err))
		return
	}

	// 确认入库前按行去重，念两遍的菜不重复记
	in.TranscribedText = transcription.DeduplicateLines(in.TranscribedText)

	o, err := h.store.Add(r.Context(), &in)
	if err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersCreated.Inc()
	}
	jsonResponse(w, http.StatusCreated, o)
}

// OrderByID 处理 /orders/{id} 及其子操作 close/reopen/items。
func (h *Handler) OrderByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		jsonError(w, http.StatusBadRequest, fmt.Errorf("order id required"))
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getOrder(w, r, id)
		case http.MethodDelete:
			h.deleteOrder(w, r, id)
		default:
			jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		}
	case "close":
		h.updateStatus(w, r, id, order.StatusClosed)
	case "reopen":
		h.updateStatus(w, r, id, order.StatusOpen)
	case "items":
		h.appendItems(w, r, id)
	default:
		jsonError(w, http.StatusNotFound, fmt.Errorf("unknown order action %q", action))
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Delete(r.Context(), id); err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersDeleted.Inc()
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, id string, to order.Status) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var (
		o   *order.Order
		err error
	)
	if to == order.StatusClosed {
		o, err = h.store.CloseOrder(r.Context(), id)
	} else {
		o, err = h.store.ReopenOrder(r.Context(), id)
	}
	if err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	if to == order.StatusClosed && h.metrics != nil {
		h.metrics.OrdersClosed.Inc()
	}
	jsonResponse(w, http.StatusOK, o)
}

func (h *Handler) appendItems(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Errorf("invalid items payload: %w", err))
		return
	}

	o, err := h.store.AppendItems(r.Context(), id, transcription.DeduplicateLines(in.Text))
	if err != nil {
		jsonError(w, statusFromError(err), err)
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

// Transcribe 处理 POST /transcriptions：音频 -> 清洗后的订单文本。
// 单次尝试不重试；上游持续失败时熔断快速返回，由点单员决定是否重试。
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var in struct {
		AudioURI string `json:"audioUri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Errorf("invalid transcription payload: %w", err))
		return
	}
	if strings.TrimSpace(in.AudioURI) == "" {
		jsonError(w, http.StatusBadRequest, fmt.Errorf("audioUri required"))
		return
	}

	apiKey, err := h.creds.Get()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err)
		return
	}
	// 本地配置问题，在熔断器外拦下：没配 key 不算上游故障
	if strings.TrimSpace(apiKey) == "" {
		jsonError(w, http.StatusUnauthorized, transcription.ErrMissingCredential)
		return
	}

	if h.metrics != nil {
		h.metrics.TranscriptionRequests.Inc()
	}
	start := time.Now()

	var text string
	err = h.breaker.Call(r.Context(), func() error {
		var perr error
		text, perr = h.pipeline.Process(r.Context(), in.AudioURI, apiKey)
		return perr
	})
	if h.metrics != nil {
		h.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
		// 转写成功才会进入提取阶段
		var ee *transcription.ExtractionError
		if err == nil || errors.As(err, &ee) {
			h.metrics.ExtractionRequests.Inc()
		}
		if errors.As(err, &ee) {
			h.metrics.ExtractionFailures.Inc()
		}
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.TranscriptionFailures.Inc()
		}
		if h.log != nil {
			h.log.WithFields(map[string]interface{}{
				"audio": in.AudioURI,
				"error": err.Error(),
			}).Warn("transcription pipeline failed")
		}
		jsonError(w, statusFromError(err), err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"text": text})
}

// Recordings 处理 /recordings/{action}：start 开始会话，data 推送 PCM-16
// 小端字节流，stop 结束会话并返回音频定位符。定位符随后交给 /transcriptions。
func (h *Handler) Recordings(w http.ResponseWriter, r *http.Request) {
	if h.session == nil || h.capture == nil {
		jsonError(w, http.StatusNotImplemented, fmt.Errorf("recording is not enabled"))
		return
	}
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/recordings/")
	switch action {
	case "start":
		if err := h.session.Start(r.Context()); err != nil {
			jsonError(w, statusFromError(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"state": string(h.session.State())})
	case "data":
		if h.session.State() != recording.StateRecording {
			jsonError(w, statusFromError(recording.ErrNoActiveSession), recording.ErrNoActiveSession)
			return
		}
		pcm, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, http.StatusBadRequest, fmt.Errorf("failed to read pcm payload: %w", err))
			return
		}
		if err := h.capture.Append(pcm); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	case "stop":
		result, err := h.session.Stop(r.Context())
		if err != nil {
			jsonError(w, statusFromError(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{
			"audioUri": result.URI,
			"duration": result.Duration,
		})
	default:
		jsonError(w, http.StatusNotFound, fmt.Errorf("unknown recording action %q", action))
	}
}

// Credential 处理 /credential：GET 查询状态，PUT 保存，DELETE 删除。
func (h *Handler) Credential(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		value, err := h.creds.Get()
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]bool{
			"configured": value != "",
			"valid":      transcription.ValidateAPIKey(value),
		})
	case http.MethodPut:
		var in struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			jsonError(w, http.StatusBadRequest, fmt.Errorf("invalid credential payload: %w", err))
			return
		}
		if !transcription.ValidateAPIKey(in.Value) {
			jsonError(w, http.StatusBadRequest, fmt.Errorf("credential must be non-empty and start with sk-"))
			return
		}
		if err := h.creds.Save(strings.TrimSpace(in.Value)); err != nil {
			jsonError(w, http.StatusInternalServerError, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	case http.MethodDelete:
		if err := h.creds.Delete(); err != nil {
			jsonError(w, http.StatusInternalServerError, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	default:
		jsonError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// Healthz 健康检查（Consul HTTP check 探测点）
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
