package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/actiongate/api"
	"github.com/BaSui01/actiongate/gateway"
	"go.uber.org/zap"
)

// Dispatcher turns a request into validated actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req gateway.DispatchRequest) (*gateway.DispatchResult, error)
}

// ActionsHandler 处理 /get-actions
type ActionsHandler struct {
	dispatcher   Dispatcher
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewActionsHandler 创建动作处理器；maxBodyBytes 需容纳 base64 截图
func NewActionsHandler(d Dispatcher, maxBodyBytes int64, logger *zap.Logger) *ActionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 32 << 20
	}
	return &ActionsHandler{
		dispatcher:   d,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(zap.String("handler", "actions")),
	}
}

// HandleGetActions 处理 POST /get-actions
func (h *ActionsHandler) HandleGetActions(w http.ResponseWriter, r *http.Request) {
	var req api.GetActionsRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), req.DispatchRequest())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.GetActionsResponse{
		Success:  true,
		Actions:  res.Actions,
		Dropped:  res.Dropped,
		Provider: res.Provider,
	})
}
