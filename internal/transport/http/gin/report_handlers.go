package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/service"
)

// @Summary  Sales by dish for a day range
// @Tags     reports
// @Security BearerAuth
// @Param    start_date  query  string  true  "first day, inclusive"
// @Param    end_date    query  string  true  "last day, inclusive"
// @Success  200  {object}  domain.SalesReport
// @Failure  400  {object}  ErrorResponse
// @Router   /reports/sales [get]
func handleSalesReport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svcs.Report.Sales(c.Request.Context(), actorFrom(c), c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, r, "private, max-age=60", true)
	}
}

// @Summary  Reservation statistics for a day range
// @Description  Without bounds the last 30 days are reported.
// @Tags     reports
// @Security BearerAuth
// @Param    start_date  query  string  false  "first day, inclusive"
// @Param    end_date    query  string  false  "last day, inclusive"
// @Success  200  {object}  domain.BookingReport
// @Router   /reports/bookings [get]
func handleBookingReport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svcs.Report.Bookings(c.Request.Context(), actorFrom(c), c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, r, "private, max-age=60", true)
	}
}

// @Summary  All-time dish ranking
// @Tags     reports
// @Security BearerAuth
// @Param    limit  query  int  false  "default 10, max 100"
// @Success  200  {array}  domain.PopularDish
// @Router   /reports/popular-dishes [get]
func handlePopularDishes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := parseIntQuery(c, "limit")
		if !ok {
			return
		}
		out, err := svcs.Report.PopularDishes(c.Request.Context(), actorFrom(c), limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "private, max-age=60", true)
	}
}

// @Summary  One-day roll-up
// @Tags     reports
// @Security BearerAuth
// @Param    date  query  string  false  "defaults to today"
// @Success  200  {object}  domain.DailySummary
// @Router   /reports/daily-summary [get]
func handleDailySummary(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := svcs.Report.DailySummary(c.Request.Context(), actorFrom(c), c.Query("date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, r, "private, max-age=60", true)
	}
}
