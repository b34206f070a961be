package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/domain"
	"carrental/internal/repository"
	"carrental/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{service.ErrCarNotFound, http.StatusNotFound},
		{fmt.Errorf("associated car: %w", service.ErrCarNotFound), http.StatusNotFound},
		{service.ErrRentalNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %q", service.ErrInvalidDate, "x"), http.StatusBadRequest},
		{service.ErrInvalidDateRange, http.StatusBadRequest},
		{service.ErrMissingDates, http.StatusBadRequest},
		{service.ErrInvalidStatus, http.StatusBadRequest},
		{errInvalidBody, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrBookingConflict, http.StatusConflict},
		{service.ErrRentalCompleted, http.StatusConflict},
		{service.ErrLockUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, mapErrorToHTTPStatus(tc.err))
		})
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, w.Body.String())
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors[0].Error(), "connection refused")
}

func TestRefJSON(t *testing.T) {
	testCases := []struct {
		ref  domain.Ref
		want string
	}{
		{domain.NumberRef(7), `7`},
		{domain.StringRef("7"), `"7"`},
		{domain.KeyRef("65f0c1a5b6c7d8e9f0a1b2c3"), `"65f0c1a5b6c7d8e9f0a1b2c3"`},
		{domain.Ref{}, `null`},
	}

	for _, tc := range testCases {
		data, err := json.Marshal(refJSON(tc.ref))
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(data))
	}
}
