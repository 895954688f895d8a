package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/udithsc/storefront-api/internal/dto"
	"github.com/udithsc/storefront-api/internal/middleware"
	"github.com/udithsc/storefront-api/internal/service"
)

type CheckoutHandler struct {
	svc *service.CheckoutService
}

func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// CreateSession accepts authenticated and guest callers alike; the route is
// wrapped in OptionalAuth.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID string
	if id := middleware.GetUserID(c); id != uuid.Nil {
		userID = id.String()
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), userID, req.Email, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		case errors.Is(err, service.ErrProductUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "product is not available"})
		case errors.Is(err, service.ErrPaymentProvider):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
