package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/domain"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Services *service.Services
	Issuer   *auth.Issuer
	Idem     *redisrepo.IdempotencyStore
	Health   Pinger
	Logger   *slog.Logger
}

func NewRouter(deps RouterDeps, middlewares ...gin.HandlerFunc) *gin.Engine {
	svcs := deps.Services

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(deps.Logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", handleHealth(deps.Health))

	r.POST("/auth/login", handleLogin(svcs))

	api := r.Group("/", AuthMiddleware(deps.Issuer))

	api.GET("/auth/me", handleMe(svcs))

	// catalog
	api.GET("/halls", handleListHalls(svcs))
	api.POST("/halls", handleCreateHall(svcs))
	api.GET("/halls/:id", handleGetHall(svcs))
	api.PATCH("/halls/:id", handleUpdateHall(svcs))
	api.DELETE("/halls/:id", handleDeleteHall(svcs))

	api.GET("/tables", handleListTables(svcs))
	api.GET("/tables/available", handleAvailableTables(svcs))
	api.POST("/tables", handleCreateTable(svcs))
	api.GET("/tables/:id", handleGetTable(svcs))
	api.PATCH("/tables/:id", handleUpdateTable(svcs))
	api.DELETE("/tables/:id", handleDeleteTable(svcs))

	api.GET("/categories", handleListCategories(svcs))
	api.POST("/categories", handleCreateCategory(svcs))
	api.PATCH("/categories/:id", handleUpdateCategory(svcs))
	api.DELETE("/categories/:id", handleDeleteCategory(svcs))

	api.GET("/dishes", handleListDishes(svcs))
	api.POST("/dishes", handleCreateDish(svcs))
	api.GET("/dishes/:id", handleGetDish(svcs))
	api.PATCH("/dishes/:id", handleUpdateDish(svcs))
	api.DELETE("/dishes/:id", handleDeleteDish(svcs))
	api.PUT("/dishes/:id/availability", handleSetDishAvailability(svcs))

	// reservations
	api.GET("/reservations", handleListReservations(svcs))
	api.GET("/reservations/statuses", handleReservationStatuses(svcs))
	api.POST("/reservations", handleCreateReservation(svcs, deps.Idem))
	api.GET("/reservations/:id", handleGetReservation(svcs))
	api.PATCH("/reservations/:id", handleUpdateReservation(svcs))
	api.DELETE("/reservations/:id", handleDeleteReservation(svcs))

	// orders
	api.GET("/orders", handleListOrders(svcs))
	api.POST("/orders", handleCreateOrder(svcs, deps.Idem))
	api.GET("/orders/:id", handleGetOrder(svcs))
	api.POST("/orders/:id/items", handleAddItem(svcs))
	api.POST("/orders/:id/close", handleCloseOrder(svcs))
	api.GET("/orders/:id/receipt", handleReceipt(svcs))

	kitchen := api.Group("/kitchen", RequireCapability(domain.CapKitchenAccess))
	{
		kitchen.GET("/items", handlePendingForKitchen(svcs))
		kitchen.POST("/items/:id/ready", handleMarkItemReady(svcs))
		kitchen.POST("/orders/:id/ready", handleMarkAllReady(svcs))
	}

	reports := api.Group("/reports", RequireCapability(domain.CapViewReports))
	{
		reports.GET("/sales", handleSalesReport(svcs))
		reports.GET("/bookings", handleBookingReport(svcs))
		reports.GET("/popular-dishes", handlePopularDishes(svcs))
		reports.GET("/daily-summary", handleDailySummary(svcs))
	}

	admin := api.Group("/admin", RequireCapability(domain.CapManageStaff))
	{
		admin.GET("/staff", handleListEmployees(svcs))
		admin.POST("/staff", handleCreateEmployee(svcs))
		admin.GET("/staff/:id", handleGetEmployee(svcs))
		admin.PUT("/staff/:id", handleUpdateEmployee(svcs))
		admin.DELETE("/staff/:id", handleDeleteEmployee(svcs))
		admin.GET("/positions", handleListPositions(svcs))
	}

	return r
}

// @Summary  Liveness and database reachability
// @Tags     system
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /healthz [get]
func handleHealth(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			if err := p.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseInt64Query(c *gin.Context, name string) (int64, bool) {
	s := c.Query(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	v, ok := parseInt64Query(c, name)
	return int(v), ok
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}
