// README: Service-area check for client-side pickup validation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"errandhub/internal/modules/location"
)

type AreaHandler struct {
	area *location.ServiceArea
}

func NewAreaHandler(area *location.ServiceArea) *AreaHandler {
	return &AreaHandler{area: area}
}

func (h *AreaHandler) Check(c *gin.Context) {
	lat, err := parseCoordinate(c, "lat")
	if err != nil {
		writeDomainError(c, err)
		return
	}
	lng, err := parseCoordinate(c, "lng")
	if err != nil {
		writeDomainError(c, err)
		return
	}
	check, err := h.area.Validate(lat, lng)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, check)
}
