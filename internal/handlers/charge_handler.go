package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// ChargeService is the slice of the lifecycle engine the HTTP layer needs.
type ChargeService interface {
	Create(ctx context.Context, in models.CreateChargeInput) (*models.Charge, error)
	Update(ctx context.Context, id int64, in models.UpdateChargeInput) (*models.Charge, error)
	Cancel(ctx context.Context, id int64, reason string) (*models.Charge, error)
	MarkPaid(ctx context.Context, id int64, paidAt *time.Time) (*models.Charge, error)
	Refund(ctx context.Context, id int64, reason string) (*models.Charge, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Charge, error)
	GetByGatewayChargeID(ctx context.Context, gatewayChargeID string) (*models.Charge, error)
	List(ctx context.Context, filter models.ChargeFilter) ([]models.Charge, int64, error)
}

// SyncDispatcher queues a background gateway reconciliation.
type SyncDispatcher interface {
	Dispatch(chargeID int64)
}

type ChargeHandler struct {
	service    ChargeService
	dispatcher SyncDispatcher
}

func NewChargeHandler(service ChargeService, dispatcher SyncDispatcher) *ChargeHandler {
	return &ChargeHandler{service: service, dispatcher: dispatcher}
}

type createChargeRequest struct {
	CustomerID       int64           `json:"customer_id" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Description      string          `json:"description" binding:"required,min=3,max=500"`
	PaymentMethod    string          `json:"payment_method" binding:"required"`
	DueDate          string          `json:"due_date" binding:"required"`
	PaymentGatewayID *int64          `json:"payment_gateway_id"`
	Metadata         models.Metadata `json:"metadata"`
}

type updateChargeRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description" binding:"omitempty,min=3,max=500"`
	DueDate     *string          `json:"due_date"`
	Metadata    models.Metadata  `json:"metadata"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type markPaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

func (h *ChargeHandler) Create(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	dueDate, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	charge, err := h.service.Create(c.Request.Context(), models.CreateChargeInput{
		CustomerID:       req.CustomerID,
		Amount:           req.Amount,
		Description:      req.Description,
		PaymentMethod:    method,
		DueDate:          dueDate,
		PaymentGatewayID: req.PaymentGatewayID,
		Metadata:         req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newChargeResponse(charge))
}

func (h *ChargeHandler) List(c *gin.Context) {
	filter, err := parseChargeFilter(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	charges, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]chargeResponse, len(charges))
	for i := range charges {
		items[i] = newChargeResponse(&charges[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"meta": gin.H{
			"total":    total,
			"page":     filter.Page,
			"per_page": filter.PerPage,
		},
	})
}

func (h *ChargeHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	charge, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

// GetByGatewayID resolves a charge from the gateway's identifier, the lookup
// gateway webhooks arrive with.
func (h *ChargeHandler) GetByGatewayID(c *gin.Context) {
	charge, err := h.service.GetByGatewayChargeID(c.Request.Context(), c.Param("gateway_charge_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

func (h *ChargeHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	in := models.UpdateChargeInput{
		Amount:      req.Amount,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse(time.DateOnly, *req.DueDate)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		in.DueDate = &dueDate
	}

	charge, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

// Delete soft-deletes the charge. Cancellation is a separate operation
// with its own endpoint and audit trail.
func (h *ChargeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChargeHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	charge, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

func (h *ChargeHandler) Pay(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	charge, err := h.service.MarkPaid(c.Request.Context(), id, req.PaidAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

func (h *ChargeHandler) Refund(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	charge, err := h.service.Refund(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChargeResponse(charge))
}

// Sync queues a gateway reconciliation and returns immediately; the result
// lands asynchronously.
func (h *ChargeHandler) Sync(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.dispatcher.Dispatch(id)
	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Charge sync queued successfully",
		"charge_id": id,
	})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id", "error": "invalid_request"})
		return 0, false
	}
	return id, true
}

func parseChargeFilter(c *gin.Context) (models.ChargeFilter, error) {
	var filter models.ChargeFilter

	if raw := c.Query("status"); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			status, err := models.ParseChargeStatus(strings.TrimSpace(token))
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, err
		}
		filter.DueFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, err
		}
		filter.DueTo = &t
	}
	filter.OnlyOverdue = c.Query("overdue") == "true"
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "15"))
	filter.Normalize()

	return filter, nil
}
