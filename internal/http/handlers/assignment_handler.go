// README: Assignment handlers: read, status updates and ratings.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"errandhub/internal/http/middleware"
	"errandhub/internal/modules/lifecycle"
	"errandhub/internal/modules/rating"
	"errandhub/internal/modules/request"
)

type AssignmentHandler struct {
	lifecycle *lifecycle.Controller
	ratings   *rating.Service
}

func NewAssignmentHandler(ctrl *lifecycle.Controller, ratings *rating.Service) *AssignmentHandler {
	return &AssignmentHandler{lifecycle: ctrl, ratings: ratings}
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	a, err := h.lifecycle.GetAssignment(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.lifecycle.UpdateStatus(c.Request.Context(), lifecycle.UpdateStatusCommand{
		AssignmentID: id,
		NewStatus:    request.AssignmentStatus(req.Status),
		Notes:        req.Notes,
		Actor:        middleware.Caller(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

type rateReq struct {
	Score   int    `json:"score" binding:"required"`
	Comment string `json:"comment"`
}

func (h *AssignmentHandler) Rate(c *gin.Context) {
	id, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	r, err := h.ratings.Submit(c.Request.Context(), rating.SubmitCommand{
		AssignmentID: id,
		Rater:        middleware.Caller(c),
		Score:        req.Score,
		Comment:      req.Comment,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// UserRatings lists the ratings a user has received, newest first.
func (h *AssignmentHandler) UserRatings(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	page, err := parsePage(c)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	items, err := h.ratings.ListForUser(c.Request.Context(), id, page)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ratings": items})
}
