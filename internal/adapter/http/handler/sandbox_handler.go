package handler

import (
	"errors"
	"net/http"
	"strconv"

	"inapppay/internal/adapter/http/dto"
	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/wire"
	"inapppay/pkg/apperror"
	"inapppay/pkg/response"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on 503 answers so clients back off.
const retryAfterSeconds = 1

// SandboxHandler serves the purchase backend endpoints.
type SandboxHandler struct {
	backend ports.SandboxBackend
}

func NewSandboxHandler(backend ports.SandboxBackend) *SandboxHandler {
	return &SandboxHandler{backend: backend}
}

// ValidateItem handles POST /validateItemForPurchase.
func (h *SandboxHandler) ValidateItem(c *gin.Context) {
	q, ok := bindQuery(c, true)
	if !ok {
		return
	}
	item, err := h.backend.ValidateItem(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, "Item is available", item)
}

// ProcessPurchase handles POST /processPurchase. The Idempotency-Key header
// wins over the body copy; a replayed receipt is flagged with Idempotent-Replayed.
func (h *SandboxHandler) ProcessPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if req.PaymentMethod == "card" && req.CardData == nil {
		response.Error(c, apperror.Validation("cardData is required for card payments"))
		return
	}
	dto.SanitizeStruct(&req)

	key := c.GetHeader(domain.IdempotencyKeyHeader)
	receipt, replayed, err := h.backend.ProcessPurchase(c.Request.Context(), req.ToWire(), key)
	if err != nil {
		fail(c, err)
		return
	}
	if replayed {
		c.Header(wire.HeaderIdempotentReplayed, "true")
	}
	response.OK(c, "Purchase successful", receipt)
}

// CheckPurchased handles POST /checkUserPurchased.
func (h *SandboxHandler) CheckPurchased(c *gin.Context) {
	q, ok := bindQuery(c, true)
	if !ok {
		return
	}
	owned, err := h.backend.CheckPurchased(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, "", dto.StatusResponse{Purchased: owned})
}

// CheckSubscribed handles POST /checkUserSubscribed.
func (h *SandboxHandler) CheckSubscribed(c *gin.Context) {
	q, ok := bindQuery(c, true)
	if !ok {
		return
	}
	active, err := h.backend.CheckSubscribed(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, "", dto.StatusResponse{Subscribed: active})
}

// ListPurchases handles POST /getPurchases.
func (h *SandboxHandler) ListPurchases(c *gin.Context) {
	q, ok := bindQuery(c, false)
	if !ok {
		return
	}
	records, err := h.backend.ListPurchases(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, "", nonNil(records))
}

// ListSubscriptions handles POST /getSubscriptions.
func (h *SandboxHandler) ListSubscriptions(c *gin.Context) {
	q, ok := bindQuery(c, false)
	if !ok {
		return
	}
	records, err := h.backend.ListSubscriptions(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, "", nonNil(records))
}

func bindQuery(c *gin.Context, needProduct bool) (wire.QueryBody, bool) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return wire.QueryBody{}, false
	}
	if needProduct && req.ProductID == "" {
		response.Error(c, apperror.Validation("productId is required"))
		return wire.QueryBody{}, false
	}
	dto.SanitizeStruct(&req)
	return req.ToWire(), true
}

// fail writes err, adding Retry-After when the backend is unavailable.
func fail(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusServiceUnavailable {
		c.Header(wire.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
	}
	response.Error(c, err)
}

// nonNil keeps empty lists encoded as [] so clients can tell them from a missing payload.
func nonNil(records []wire.ReceiptData) []wire.ReceiptData {
	if records == nil {
		return []wire.ReceiptData{}
	}
	return records
}
