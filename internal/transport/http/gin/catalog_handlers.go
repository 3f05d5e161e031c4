package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/catalog"
)

// @Summary  List halls
// @Tags     catalog
// @Security BearerAuth
// @Success  200  {array}  domain.Hall
// @Router   /halls [get]
func handleListHalls(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		halls, err := svcs.Catalog.ListHalls(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, halls, "private, max-age=60", true)
	}
}

// @Summary  Get hall with its tables
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Hall ID"
// @Success  200  {object}  domain.Hall
// @Failure  404  {object}  ErrorResponse
// @Router   /halls/{id} [get]
func handleGetHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		h, err := svcs.Catalog.GetHall(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, h, "private, max-age=60", true)
	}
}

// @Summary  Create hall
// @Tags     catalog
// @Security BearerAuth
// @Param    req  body  HallRequest  true  "payload"
// @Success  201  {object}  domain.Hall
// @Failure  403  {object}  ErrorResponse
// @Router   /halls [post]
func handleCreateHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req HallRequest
		if !bindJSON(c, &req) {
			return
		}
		h, err := svcs.Catalog.CreateHall(c.Request.Context(), actorFrom(c), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, h)
	}
}

// @Summary  Rename hall
// @Tags     catalog
// @Security BearerAuth
// @Param    id   path  int          true  "Hall ID"
// @Param    req  body  HallRequest  true  "payload"
// @Success  200  {object}  domain.Hall
// @Router   /halls/{id} [patch]
func handleUpdateHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req HallRequest
		if !bindJSON(c, &req) {
			return
		}
		h, err := svcs.Catalog.UpdateHall(c.Request.Context(), actorFrom(c), id, req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

// @Summary  Delete hall
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Hall ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "hall still has tables"
// @Router   /halls/{id} [delete]
func handleDeleteHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Catalog.DeleteHall(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List tables
// @Tags     catalog
// @Security BearerAuth
// @Param    hall_id  query  int  false  "Hall ID"
// @Success  200  {array}  domain.Table
// @Router   /tables [get]
func handleListTables(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hallID, ok := parseInt64Query(c, "hall_id")
		if !ok {
			return
		}
		tables, err := svcs.Catalog.ListTables(c.Request.Context(), hallID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, tables, "private, max-age=60", true)
	}
}

// @Summary  Get table
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Table ID"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Router   /tables/{id} [get]
func handleGetTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Catalog.GetTable(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Create table
// @Tags     catalog
// @Security BearerAuth
// @Param    req  body  CreateTableRequest  true  "payload"
// @Success  201  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse  "hall not found"
// @Router   /tables [post]
func handleCreateTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTableRequest
		if !bindJSON(c, &req) {
			return
		}
		t, err := svcs.Catalog.CreateTable(c.Request.Context(), actorFrom(c), req.HallID, req.Capacity)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  Update table
// @Tags     catalog
// @Security BearerAuth
// @Param    id   path  int                 true  "Table ID"
// @Param    req  body  UpdateTableRequest  true  "payload"
// @Success  200  {object}  domain.Table
// @Router   /tables/{id} [patch]
func handleUpdateTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateTableRequest
		if !bindJSON(c, &req) {
			return
		}
		t, err := svcs.Catalog.UpdateTable(c.Request.Context(), actorFrom(c), id, catalog.TablePatch{
			HallID:   req.HallID,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Delete table
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Table ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "table is referenced by reservations or orders"
// @Router   /tables/{id} [delete]
func handleDeleteTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Catalog.DeleteTable(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List dish categories
// @Tags     catalog
// @Security BearerAuth
// @Success  200  {array}  domain.Category
// @Router   /categories [get]
func handleListCategories(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.ListCategories(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "private, max-age=300", true)
	}
}

// @Summary  Create dish category
// @Tags     catalog
// @Security BearerAuth
// @Param    req  body  CategoryRequest  true  "payload"
// @Success  201  {object}  domain.Category
// @Failure  409  {object}  ErrorResponse
// @Router   /categories [post]
func handleCreateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		cat, err := svcs.Catalog.CreateCategory(c.Request.Context(), actorFrom(c), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

// @Summary  Rename dish category
// @Tags     catalog
// @Security BearerAuth
// @Param    id   path  int              true  "Category ID"
// @Param    req  body  CategoryRequest  true  "payload"
// @Success  200  {object}  domain.Category
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "name taken"
// @Router   /categories/{id} [patch]
func handleUpdateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		cat, err := svcs.Catalog.UpdateCategory(c.Request.Context(), actorFrom(c), id, req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

// @Summary  Delete dish category
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Category ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "category still has dishes"
// @Router   /categories/{id} [delete]
func handleDeleteCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Catalog.DeleteCategory(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List dishes
// @Tags     catalog
// @Security BearerAuth
// @Param    category_id     query  int   false  "Category ID"
// @Param    only_available  query  bool  false  "Only dishes on the menu"
// @Success  200  {array}  domain.Dish
// @Router   /dishes [get]
func handleListDishes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryID, ok := parseInt64Query(c, "category_id")
		if !ok {
			return
		}
		onlyAvailable := c.Query("only_available") == "true" || c.Query("only") == "available"

		dishes, err := svcs.Catalog.ListDishes(c.Request.Context(), categoryID, onlyAvailable)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, dishes, "private, max-age=60", true)
	}
}

// @Summary  Get dish
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Dish ID"
// @Success  200  {object}  domain.Dish
// @Failure  404  {object}  ErrorResponse
// @Router   /dishes/{id} [get]
func handleGetDish(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		d, err := svcs.Catalog.GetDish(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, d, "private, max-age=60", true)
	}
}

// @Summary  Create dish
// @Tags     catalog
// @Security BearerAuth
// @Param    req  body  CreateDishRequest  true  "payload"
// @Success  201  {object}  domain.Dish
// @Failure  400  {object}  ErrorResponse
// @Router   /dishes [post]
func handleCreateDish(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateDishRequest
		if !bindJSON(c, &req) {
			return
		}
		d, err := svcs.Catalog.CreateDish(c.Request.Context(), actorFrom(c), catalog.DishInput{
			CategoryID:  req.CategoryID,
			Name:        req.Name,
			Composition: req.Composition,
			WeightGrams: req.WeightGrams,
			Price:       req.Price,
			IsAvailable: req.IsAvailable,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

// @Summary  Update dish
// @Tags     catalog
// @Security BearerAuth
// @Param    id   path  int                true  "Dish ID"
// @Param    req  body  UpdateDishRequest  true  "payload"
// @Success  200  {object}  domain.Dish
// @Router   /dishes/{id} [patch]
func handleUpdateDish(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateDishRequest
		if !bindJSON(c, &req) {
			return
		}
		d, err := svcs.Catalog.UpdateDish(c.Request.Context(), actorFrom(c), id, catalog.DishPatch{
			CategoryID:  req.CategoryID,
			Name:        req.Name,
			Composition: req.Composition,
			WeightGrams: req.WeightGrams,
			Price:       req.Price,
			IsAvailable: req.IsAvailable,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// @Summary  Set or toggle dish availability
// @Tags     catalog
// @Security BearerAuth
// @Param    id   path  int                      true   "Dish ID"
// @Param    req  body  DishAvailabilityRequest  false  "omit is_available to toggle"
// @Success  200  {object}  DishAvailabilityResponse
// @Router   /dishes/{id}/availability [put]
func handleSetDishAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req DishAvailabilityRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		v, err := svcs.Catalog.SetDishAvailability(c.Request.Context(), actorFrom(c), id, req.IsAvailable)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, DishAvailabilityResponse{DishID: id, IsAvailable: v})
	}
}

// @Summary  Delete dish
// @Tags     catalog
// @Security BearerAuth
// @Param    id  path  int  true  "Dish ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "dish appears in orders"
// @Router   /dishes/{id} [delete]
func handleDeleteDish(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Catalog.DeleteDish(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
