package httpgin

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/domain"
)

// opPrefix matches the "pkg.Type.Method:" chain services put in front of errors.
var opPrefix = regexp.MustCompile(`^([a-z]+(\.[A-Za-z]+)+:\s*)+`)

type errorClass struct {
	target error
	status int
	code   string
}

var errorClasses = []errorClass{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrEmptyOrder, http.StatusBadRequest, "empty_order"},
	{domain.ErrCapacityExceeded, http.StatusBadRequest, "capacity_exceeded"},
	{domain.ErrDishUnavailable, http.StatusUnprocessableEntity, "dish_unavailable"},
	{domain.ErrOrderClosed, http.StatusConflict, "order_closed"},
	{domain.ErrNoActionNeeded, http.StatusConflict, "no_action_needed"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
}

// respondErr writes the HTTP form of err. Known domain errors keep their message;
// anything else is logged and reported as a generic internal error.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl domain.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}

	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			c.JSON(ec.status, ErrorResponse{Error: publicMessage(err), Code: ec.code})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
}

func publicMessage(err error) string {
	return opPrefix.ReplaceAllString(err.Error(), "")
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "invalid_input"})
}
