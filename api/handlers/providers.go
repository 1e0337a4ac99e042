package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BaSui01/actiongate/api"
	"github.com/BaSui01/actiongate/gateway"
	"github.com/BaSui01/actiongate/llm"
	"go.uber.org/zap"
)

// ProviderCatalog lists providers for GET /providers.
type ProviderCatalog interface {
	List() []llm.ProviderDescriptor
}

// ProviderRegistrar registers custom providers for POST /add-provider.
type ProviderRegistrar interface {
	RegisterProvider(ctx context.Context, id string, in gateway.CustomProviderInput) error
}

// ProvidersHandler 提供方列表与注册
type ProvidersHandler struct {
	catalog   ProviderCatalog
	registrar ProviderRegistrar
	logger    *zap.Logger
}

// NewProvidersHandler 创建提供方处理器
func NewProvidersHandler(catalog ProviderCatalog, registrar ProviderRegistrar, logger *zap.Logger) *ProvidersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProvidersHandler{
		catalog:   catalog,
		registrar: registrar,
		logger:    logger.With(zap.String("handler", "providers")),
	}
}

// HandleList 处理 GET /providers
func (h *ProvidersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.ProvidersResponse{Providers: h.catalog.List()})
}

// HandleAdd 处理 POST /add-provider
func (h *ProvidersHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req api.AddProviderRequest
	if err := DecodeJSONBody(w, r, &req, DefaultMaxBodyBytes); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	if err := h.registrar.RegisterProvider(r.Context(), req.ID, req.Config); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.AddProviderResponse{
		Success: true,
		Message: fmt.Sprintf("Provider %s added", req.ID),
	})
}
