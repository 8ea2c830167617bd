package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TableVoice/TableVoice/internal/common/middleware"
	"github.com/TableVoice/TableVoice/internal/order"
	"github.com/TableVoice/TableVoice/internal/recording"
	"github.com/TableVoice/TableVoice/internal/transcription"
)

// jsonResponse 写出 JSON 响应
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError 按错误类型映射状态码后写出 JSON 错误
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// statusFromError 错误分类 -> HTTP 状态码
func statusFromError(err error) int {
	var te *transcription.TranscriptionError
	var ee *transcription.ExtractionError

	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, order.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, transcription.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, recording.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, recording.ErrAlreadyRecording), errors.Is(err, recording.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, middleware.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &te), errors.As(err, &ee):
		// 上游转写/提取失败，转成网关错误透出
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
