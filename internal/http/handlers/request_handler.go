// README: Requester-facing handlers: create, list, read, edit, delete, cancel.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"errandhub/internal/http/middleware"
	"errandhub/internal/modules/lifecycle"
	"errandhub/internal/modules/request"
	"errandhub/internal/types"
)

// Geocoder resolves a pickup address when the client sends no coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type RequestHandler struct {
	requests  *request.Service
	lifecycle *lifecycle.Controller
	geocoder  Geocoder
}

// NewRequestHandler wires the handler. geocoder may be nil, in which case
// pickup_address is rejected.
func NewRequestHandler(requests *request.Service, ctrl *lifecycle.Controller, geocoder Geocoder) *RequestHandler {
	return &RequestHandler{requests: requests, lifecycle: ctrl, geocoder: geocoder}
}

type createRequestReq struct {
	Title         string       `json:"title" binding:"required"`
	Description   string       `json:"description"`
	ServiceType   string       `json:"service_type" binding:"required"`
	Pickup        *types.Point `json:"pickup"`
	PickupAddress string       `json:"pickup_address"`
	Destination   *types.Point `json:"destination"`
	OfferedAmount *int64       `json:"offered_amount"`
	Currency      string       `json:"currency"`
}

// updateRequestReq uses the same flat offered_amount/currency pair as create.
type updateRequestReq struct {
	Title         *string      `json:"title"`
	Description   *string      `json:"description"`
	Destination   *types.Point `json:"destination"`
	OfferedAmount *int64       `json:"offered_amount"`
	Currency      string       `json:"currency"`
}

// offeredMoney builds the offered amount from its minor units and currency.
// A currency without an amount is rejected with a 400.
func offeredMoney(c *gin.Context, amount *int64, currency string) (*types.Money, bool) {
	if amount == nil {
		if currency != "" {
			writeError(c, http.StatusBadRequest, "currency requires offered_amount")
			return nil, false
		}
		return nil, true
	}
	return &types.Money{Amount: *amount, Currency: currency}, true
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	pickup := req.Pickup
	if pickup == nil && strings.TrimSpace(req.PickupAddress) != "" {
		if h.geocoder == nil {
			writeError(c, http.StatusBadRequest, "address lookup unavailable; send pickup coordinates")
			return
		}
		p, err := h.geocoder.Geocode(c.Request.Context(), req.PickupAddress)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		pickup = &p
	}
	offered, ok := offeredMoney(c, req.OfferedAmount, req.Currency)
	if !ok {
		return
	}

	r, err := h.requests.Create(c.Request.Context(), types.ID(middleware.CallerUID(c)), request.CreateAttrs{
		Title:         req.Title,
		Description:   req.Description,
		ServiceType:   request.ServiceType(req.ServiceType),
		Pickup:        pickup,
		Destination:   req.Destination,
		OfferedAmount: offered,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *RequestHandler) Mine(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	items, err := h.requests.ListByRequester(c.Request.Context(), types.ID(middleware.CallerUID(c)), page)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"requests": items})
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	r, err := h.requests.GetFor(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	var req updateRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	offered, ok := offeredMoney(c, req.OfferedAmount, req.Currency)
	if !ok {
		return
	}
	r, err := h.requests.Update(c.Request.Context(), middleware.Caller(c), id, request.Patch{
		Title:         req.Title,
		Description:   req.Description,
		Destination:   req.Destination,
		OfferedAmount: offered,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	if err := h.requests.Delete(c.Request.Context(), middleware.Caller(c), id); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	r, err := h.lifecycle.CancelRequest(c.Request.Context(), lifecycle.CancelRequestCommand{
		RequestID: id,
		Actor:     middleware.Caller(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": r.ID, "status": r.Status})
}
