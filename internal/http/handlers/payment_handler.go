// README: Payment status read and admin reconciliation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"errandhub/internal/http/middleware"
	"errandhub/internal/modules/payment"
	"errandhub/internal/modules/request"
)

type PaymentHandler struct {
	requests *request.Service
	payments *payment.Service
}

func NewPaymentHandler(requests *request.Service, payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{requests: requests, payments: payments}
}

// Get reports payment status to anyone allowed to view the request.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	r, err := h.requests.GetFor(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"request_id": r.ID, "payment_status": r.PaymentStatus})
}

type setPaymentReq struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

func (h *PaymentHandler) Set(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	var req setPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	r, err := h.payments.SetStatus(c.Request.Context(), middleware.Caller(c), id, request.PaymentStatus(req.PaymentStatus))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"request_id": r.ID, "payment_status": r.PaymentStatus})
}
