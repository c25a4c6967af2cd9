package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// CustomerService is the slice of the customer directory the HTTP layer
// needs.
type CustomerService interface {
	Create(ctx context.Context, in models.CreateCustomerInput) (*models.Customer, error)
	Update(ctx context.Context, id int64, in models.UpdateCustomerInput) (*models.Customer, error)
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) (*models.Customer, error)
	Deactivate(ctx context.Context, id int64) (*models.Customer, error)
	Block(ctx context.Context, id int64) (*models.Customer, error)
	Get(ctx context.Context, id int64) (*models.Customer, error)
	List(ctx context.Context, page, perPage int) ([]models.Customer, int64, error)
}

type CustomerHandler struct {
	service CustomerService
}

func NewCustomerHandler(service CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

type createCustomerRequest struct {
	Name     string  `json:"name" binding:"required,min=3,max=255"`
	Email    string  `json:"email" binding:"required,email"`
	Document string  `json:"document" binding:"required"`
	Phone    *string `json:"phone"`
}

type updateCustomerRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=3,max=255"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.service.Create(c.Request.Context(), models.CreateCustomerInput{
		Name:     req.Name,
		Email:    req.Email,
		Document: req.Document,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	customers, total, err := h.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": customers,
		"meta": gin.H{"total": total, "page": page, "per_page": perPage},
	})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	customer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.service.Update(c.Request.Context(), id, models.UpdateCustomerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
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

func (h *CustomerHandler) Activate(c *gin.Context) {
	h.changeStatus(c, h.service.Activate)
}

func (h *CustomerHandler) Deactivate(c *gin.Context) {
	h.changeStatus(c, h.service.Deactivate)
}

func (h *CustomerHandler) Block(c *gin.Context) {
	h.changeStatus(c, h.service.Block)
}

func (h *CustomerHandler) changeStatus(c *gin.Context, fn func(context.Context, int64) (*models.Customer, error)) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	customer, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
