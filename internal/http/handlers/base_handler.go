// README: Base handler utilities (JSON helpers, error mapping, query parsing).
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"errandhub/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

const maxIDLen = 64

// isValidID accepts uuid-style identifiers: letters, digits and dashes.
func isValidID(v string) bool {
	if v == "" || len(v) > maxIDLen {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

// pathID reads and validates the :id path parameter, writing a 400 on failure.
func pathID(c *gin.Context, what string) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid "+what+" id")
		return "", false
	}
	return types.ID(id), true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps the shared error kinds onto HTTP status codes. Unknown
// errors are logged by the caller's middleware and reported as 500.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// parsePage reads skip/limit query parameters. Missing values fall back to
// skip=0 and limit=types.DefaultLimit; the services clamp the rest.
func parsePage(c *gin.Context) (types.Page, error) {
	page := types.Page{Limit: types.DefaultLimit}
	if v := c.Query("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("%w: skip must be an integer", types.ErrValidation)
		}
		page.Skip = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("%w: limit must be an integer", types.ErrValidation)
		}
		page.Limit = n
	}
	return page, nil
}

// parseCoordinate reads a required float query parameter.
func parseCoordinate(c *gin.Context, name string) (float64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, fmt.Errorf("%w: %s required", types.ErrValidation, name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", types.ErrValidation, name)
	}
	return f, nil
}
