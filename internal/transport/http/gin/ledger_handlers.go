package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/ledger"
)

// @Summary  List orders, newest first
// @Description  Staff without ViewAllOrders only see their own orders.
// @Tags     orders
// @Security BearerAuth
// @Param    status  query  string  false  "open or closed"
// @Param    date    query  string  false  "calendar day"
// @Success  200  {array}  domain.OrderSummary
// @Router   /orders [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Ledger.ListOrders(c.Request.Context(), actorFrom(c), ledger.ListFilter{
			Status: c.Query("status"),
			Date:   c.Query("date"),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Open an order (idempotent)
// @Description  Missing or unavailable dishes are dropped from the order without error.
// @Tags     orders
// @Security BearerAuth
// @Param    req  body  CreateOrderRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "client key"
// @Success  201  {object}  domain.Order
// @Failure  400  {object}  ErrorResponse  "empty order"
// @Failure  404  {object}  ErrorResponse  "table not found"
// @Router   /orders [post]
func handleCreateOrder(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if !bindJSON(c, &req) {
			return
		}

		call, handled := beginIdempotent(c, idem, "orders")
		if handled {
			return
		}

		o, err := svcs.Ledger.CreateOrder(c.Request.Context(), actorFrom(c), req.TableID, req.Items)
		if err != nil {
			call.fail(c)
			respondErr(c, err)
			return
		}

		call.created(c, o)
	}
}

// @Summary  Get order with line items
// @Tags     orders
// @Security BearerAuth
// @Param    id  path  int  true  "Order ID"
// @Success  200  {object}  domain.Order
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Ledger.GetOrder(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Add a dish to an open order
// @Tags     orders
// @Security BearerAuth
// @Param    id   path  int             true  "Order ID"
// @Param    req  body  AddItemRequest  true  "payload"
// @Success  201  {object}  domain.AddItemResult
// @Failure  409  {object}  ErrorResponse  "order closed"
// @Failure  422  {object}  ErrorResponse  "dish unavailable"
// @Router   /orders/{id}/items [post]
func handleAddItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AddItemRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := svcs.Ledger.AddItem(c.Request.Context(), actorFrom(c), id, req.DishID, req.Quantity)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// @Summary  Close an order for billing
// @Tags     orders
// @Security BearerAuth
// @Param    id  path  int  true  "Order ID"
// @Success  200  {object}  domain.Order
// @Failure  409  {object}  ErrorResponse  "already closed"
// @Router   /orders/{id}/close [post]
func handleCloseOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Ledger.CloseOrder(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Receipt snapshot
// @Tags     orders
// @Security BearerAuth
// @Param    id  path  int  true  "Order ID"
// @Success  200  {object}  domain.Receipt
// @Router   /orders/{id}/receipt [get]
func handleReceipt(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		r, err := svcs.Ledger.Receipt(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// @Summary  Pending kitchen items, oldest order first
// @Tags     kitchen
// @Security BearerAuth
// @Success  200  {array}  domain.KitchenItem
// @Router   /kitchen/items [get]
func handlePendingForKitchen(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Ledger.PendingForKitchen(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Mark a line item ready
// @Description  Repeating the call on a ready item is a no-op.
// @Tags     kitchen
// @Security BearerAuth
// @Param    id  path  int  true  "Line item ID"
// @Success  200  {object}  domain.KitchenItem
// @Failure  409  {object}  ErrorResponse  "order closed"
// @Router   /kitchen/items/{id}/ready [post]
func handleMarkItemReady(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		it, err := svcs.Ledger.MarkItemReady(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	}
}

// @Summary  Mark every pending item of an order ready
// @Tags     kitchen
// @Security BearerAuth
// @Param    id  path  int  true  "Order ID"
// @Success  200  {object}  MarkAllReadyResponse
// @Failure  409  {object}  ErrorResponse  "nothing pending / order closed"
// @Router   /kitchen/orders/{id}/ready [post]
func handleMarkAllReady(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		n, err := svcs.Ledger.MarkAllReady(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, MarkAllReadyResponse{OrderID: id, MarkedCount: n})
	}
}
