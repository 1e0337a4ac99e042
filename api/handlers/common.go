package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/actiongate/api"
	"github.com/BaSui01/actiongate/types"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes 非调度端点的请求体上限
const DefaultMaxBodyBytes = 1 << 20

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 写入错误响应。非 *types.Error 的错误按 INTERNAL_ERROR 处理，
// 且不向客户端暴露内部细节。
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	te, ok := types.AsError(err)
	if !ok {
		te = types.NewError(types.ErrInternalError, "internal error").WithCause(err)
	}

	status := StatusFor(te)
	body := api.ErrorResponse{
		Success:   false,
		Error:     te.Message,
		Code:      string(te.Code),
		Provider:  te.Provider,
		Retryable: te.Retryable,
	}
	if te.Code == types.ErrParse {
		body.RawResponse = te.RawResponse
	}
	if r != nil {
		if id, ok := types.RequestID(r.Context()); ok {
			body.RequestID = id
		}
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(te.Code)),
			zap.String("message", te.Message),
			zap.Int("status", status),
		}
		if te.Provider != "" {
			fields = append(fields, zap.String("provider", te.Provider))
		}
		if te.Cause != nil {
			fields = append(fields, zap.NamedError("cause", te.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}

	WriteJSON(w, status, body)
}

// StatusFor returns the HTTP status for err: an explicit HTTPStatus wins,
// otherwise the code decides.
func StatusFor(err *types.Error) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	return mapErrorCodeToHTTPStatus(err.Code)
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case types.ErrInvalidRequest, types.ErrDuplicateBuiltin:
		return http.StatusBadRequest
	case types.ErrUnauthorized:
		return http.StatusUnauthorized
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrRateLimited:
		return http.StatusTooManyRequests

	// 5xx 服务端与上游错误
	case types.ErrConfig:
		return http.StatusServiceUnavailable
	case types.ErrProviderNetwork, types.ErrParse, types.ErrExecutor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodeJSONBody 在 limit 字节内解码 JSON 请求体。失败时返回 INVALID_REQUEST，
// 超出上限时状态为 413。未知字段被忽略，以兼容旧客户端。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return types.NewInvalidRequestError("request body is empty").WithHTTPStatus(http.StatusBadRequest)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return types.NewInvalidRequestError("Content-Type must be application/json").
			WithHTTPStatus(http.StatusUnsupportedMediaType)
	}
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return types.NewInvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", limit)).
				WithHTTPStatus(http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return types.NewInvalidRequestError("request body is empty").WithHTTPStatus(http.StatusBadRequest)
		default:
			return types.NewInvalidRequestError("invalid JSON body").
				WithHTTPStatus(http.StatusBadRequest).
				WithCause(err)
		}
	}
	return nil
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码与写入字节数
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Bytes      int64
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.Bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
