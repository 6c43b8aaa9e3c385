// README: Provider handlers for the open-request feed, accept and location updates.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"errandhub/internal/http/middleware"
	"errandhub/internal/modules/lifecycle"
	"errandhub/internal/modules/location"
	"errandhub/internal/modules/matching"
	"errandhub/internal/modules/request"
	"errandhub/internal/types"
)

type ProviderHandler struct {
	matching  *matching.Service
	lifecycle *lifecycle.Controller
	tracker   *location.Tracker
}

func NewProviderHandler(matchingSvc *matching.Service, ctrl *lifecycle.Controller, tracker *location.Tracker) *ProviderHandler {
	return &ProviderHandler{matching: matchingSvc, lifecycle: ctrl, tracker: tracker}
}

type candidateResp struct {
	Request  *request.ServiceRequest `json:"request"`
	Distance float64                 `json:"distance"`
}

// Available lists open requests near the provider. With lat/lng the given point
// is the search center; without them the last tracked position is used.
// Distances are reported in the requested unit (default miles).
func (h *ProviderHandler) Available(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	unit, err := location.ParseUnit(c.Query("unit"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	providerID := types.ID(middleware.CallerUID(c))

	var found []matching.Candidate
	if c.Query("lat") == "" && c.Query("lng") == "" {
		found, err = h.matching.AvailableNear(c.Request.Context(), providerID, page)
	} else {
		var lat, lng float64
		if lat, err = parseCoordinate(c, "lat"); err == nil {
			lng, err = parseCoordinate(c, "lng")
		}
		if err == nil {
			found, err = h.matching.AvailableFor(c.Request.Context(), providerID, lat, lng, page)
		}
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}

	out := make([]candidateResp, 0, len(found))
	for _, cand := range found {
		out = append(out, candidateResp{Request: cand.Request, Distance: location.Convert(cand.DistanceMiles, unit)})
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"requests": out,
		"radius":   location.Convert(h.matching.RadiusMiles(), unit),
		"unit":     unit,
	})
}

type acceptReq struct {
	Notes               string     `json:"notes"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
}

func (h *ProviderHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "request")
	if !ok {
		return
	}
	var req acceptReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	a, err := h.lifecycle.AcceptRequest(c.Request.Context(), lifecycle.AcceptCommand{
		RequestID:           id,
		Provider:            middleware.Caller(c),
		Notes:               req.Notes,
		EstimatedCompletion: req.EstimatedCompletion,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, a)
}

func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	var req types.Point
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.tracker.UpdateProvider(c.Request.Context(), types.ID(middleware.CallerUID(c)), req); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}

// ClearLocation drops the provider's tracked position; the feed then needs
// explicit coordinates again.
func (h *ProviderHandler) ClearLocation(c *gin.Context) {
	if err := h.tracker.Forget(c.Request.Context(), types.ID(middleware.CallerUID(c))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
