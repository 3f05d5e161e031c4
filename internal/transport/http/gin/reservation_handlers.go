package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/reservation"
)

// @Summary  Free tables for a date or date-time
// @Tags     reservations
// @Security BearerAuth
// @Param    date          query  string  true   "ISO 8601 date or date-time"
// @Param    min_capacity  query  int     false  "Minimum seats"
// @Param    hall_id       query  int     false  "Hall ID"
// @Success  200  {array}   domain.Table
// @Failure  400  {object}  ErrorResponse  "invalid date"
// @Router   /tables/available [get]
func handleAvailableTables(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hallID, ok := parseInt64Query(c, "hall_id")
		if !ok {
			return
		}
		minCapacity, ok := parseIntQuery(c, "min_capacity")
		if !ok {
			return
		}

		date := c.Query("date")
		if date == "" {
			date = c.Query("datetime")
		}

		tables, err := svcs.Reservation.FindAvailableTables(c.Request.Context(), reservation.AvailabilityQuery{
			DateTime:    date,
			MinCapacity: minCapacity,
			HallID:      hallID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, tables, "private, max-age=15", true)
	}
}

// @Summary  List reservations
// @Tags     reservations
// @Security BearerAuth
// @Param    from       query  string  false  "first day, inclusive"
// @Param    to         query  string  false  "last day, inclusive"
// @Param    table_id   query  int     false  "Table ID"
// @Param    status_id  query  int     false  "Status ID"
// @Success  200  {array}  domain.Reservation
// @Router   /reservations [get]
func handleListReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Query(c, "table_id")
		if !ok {
			return
		}
		statusID, ok := parseInt64Query(c, "status_id")
		if !ok {
			return
		}
		out, err := svcs.Reservation.List(c.Request.Context(), reservation.ListFilter{
			From:     c.Query("from"),
			To:       c.Query("to"),
			TableID:  tableID,
			StatusID: statusID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Reservation status dictionary
// @Tags     reservations
// @Security BearerAuth
// @Success  200  {array}  domain.ReservationStatus
// @Router   /reservations/statuses [get]
func handleReservationStatuses(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Reservation.Statuses(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=3600", false)
	}
}

// @Summary  Create reservation (idempotent)
// @Tags     reservations
// @Security BearerAuth
// @Param    req  body  CreateReservationRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "client key"
// @Success  201  {object}  domain.Reservation
// @Failure  400  {object}  ErrorResponse  "capacity exceeded / invalid date"
// @Failure  404  {object}  ErrorResponse  "table not found"
// @Failure  409  {object}  ErrorResponse  "table already booked / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /reservations [post]
func handleCreateReservation(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if !bindJSON(c, &req) {
			return
		}

		call, handled := beginIdempotent(c, idem, "reservations")
		if handled {
			return
		}

		b, err := svcs.Reservation.Create(c.Request.Context(), actorFrom(c), reservation.CreateInput{
			TableID:     req.TableID,
			GuestName:   req.GuestName,
			GuestPhone:  req.GuestPhone,
			PeopleCount: req.PeopleCount,
			DateTime:    req.DateTime,
			StatusID:    req.StatusID,
			RateKey:     "ip:" + c.ClientIP(),
		})
		if err != nil {
			call.fail(c)
			respondErr(c, err)
			return
		}

		call.created(c, b)
	}
}

// @Summary  Get reservation
// @Tags     reservations
// @Security BearerAuth
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Failure  404  {object}  ErrorResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Reservation.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Update reservation
// @Tags     reservations
// @Security BearerAuth
// @Param    id   path  int                       true  "Reservation ID"
// @Param    req  body  UpdateReservationRequest  true  "payload"
// @Success  200  {object}  domain.Reservation
// @Failure  409  {object}  ErrorResponse
// @Router   /reservations/{id} [patch]
func handleUpdateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateReservationRequest
		if !bindJSON(c, &req) {
			return
		}
		b, err := svcs.Reservation.Update(c.Request.Context(), actorFrom(c), id, reservation.UpdateInput{
			TableID:     req.TableID,
			GuestName:   req.GuestName,
			GuestPhone:  req.GuestPhone,
			PeopleCount: req.PeopleCount,
			DateTime:    req.DateTime,
			StatusID:    req.StatusID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Delete reservation
// @Tags     reservations
// @Security BearerAuth
// @Param    id  path  int  true  "Reservation ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /reservations/{id} [delete]
func handleDeleteReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Reservation.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
