package httpgin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "not found keeps message without op prefix",
			err:        fmt.Errorf("service.ledger.GetOrder:%w", domain.NotFoundError{Entity: "order", ID: 7}),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
			wantMsg:    "order 7 not found",
		},
		{
			name:       "capacity exceeded",
			err:        fmt.Errorf("service.reservation.Create:%w", domain.CapacityExceededError{TableID: 1, Capacity: 4, Requested: 6}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "capacity_exceeded",
			wantMsg:    "table 1 seats 4, requested 6",
		},
		{
			name:       "reservation conflict",
			err:        domain.ReservationConflictError{TableID: 3, ReservationID: 9},
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "dish unavailable",
			err:        domain.DishUnavailableError{DishID: 2, DishName: "Borscht"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "dish_unavailable",
		},
		{
			name:       "order closed",
			err:        domain.OrderClosedError{OrderID: 5},
			wantStatus: http.StatusConflict,
			wantCode:   "order_closed",
		},
		{
			name:       "nothing to mark",
			err:        domain.ErrNoActionNeeded,
			wantStatus: http.StatusConflict,
			wantCode:   "no_action_needed",
		},
		{
			name:       "empty order",
			err:        domain.ErrEmptyOrder,
			wantStatus: http.StatusBadRequest,
			wantCode:   "empty_order",
		},
		{
			name:       "invalid date",
			err:        domain.InvalidDateError{Value: "tomorrow"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_date",
		},
		{
			name:       "forbidden",
			err:        domain.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "unknown error is hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
			wantMsg:    "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondErr(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error)
			}
		})
	}
}

func TestRespondErrRateLimited(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondErr(c, fmt.Errorf("service.staff.Login:%w", domain.RateLimitedError{RetryAfter: 1500 * time.Millisecond}))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("service.catalog.CreateTable:%w",
		fmt.Errorf("service.catalog.validate: %w", domain.InvalidInputError{Field: "capacity", Reason: "must be positive"}))

	assert.Equal(t, "capacity: must be positive", publicMessage(err))
	assert.Equal(t, "plain message", publicMessage(errors.New("plain message")))
}
