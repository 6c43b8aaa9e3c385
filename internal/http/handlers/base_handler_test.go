package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"errandhub/internal/types"
)

func TestWriteDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", types.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: no", types.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", fmt.Errorf("%w: gone", types.ErrNotFound)), http.StatusNotFound},
		{fmt.Errorf("%w: raced", types.ErrConflict), http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeDomainError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeDomainError(c, errors.New("secret dsn in message"))
	assert.NotContains(t, w.Body.String(), "secret", "internal details stay out of the response")
	assert.Len(t, c.Errors, 1)
}

func TestIsValidID(t *testing.T) {
	assert.True(t, isValidID("6f1c2a9e-3b1d-4c7a-9d2e-0a1b2c3d4e5f"))
	assert.True(t, isValidID("u1"))
	assert.False(t, isValidID(""))
	assert.False(t, isValidID("a b"))
	assert.False(t, isValidID("../etc"))
}

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parse := func(query string) (types.Page, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/x"+query, nil)
		return parsePage(c)
	}

	p, err := parse("")
	assert.NoError(t, err)
	assert.Equal(t, types.Page{Skip: 0, Limit: types.DefaultLimit}, p)

	p, err = parse("?skip=5&limit=7")
	assert.NoError(t, err)
	assert.Equal(t, types.Page{Skip: 5, Limit: 7}, p)

	_, err = parse("?skip=x")
	assert.ErrorIs(t, err, types.ErrValidation)
}
