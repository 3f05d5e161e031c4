package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/staff"
)

// @Summary  Exchange credentials for an access token
// @Tags     auth
// @Param    req  body  LoginRequest  true  "credentials"
// @Success  200  {object}  auth.Token
// @Failure  401  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		tok, err := svcs.Staff.Login(c.Request.Context(), req.Login, req.Password, "ip:"+c.ClientIP())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, tok)
	}
}

// @Summary  Current staff member and capabilities
// @Tags     auth
// @Security BearerAuth
// @Success  200  {object}  MeResponse
// @Router   /auth/me [get]
func handleMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		e, err := svcs.Staff.Me(c.Request.Context(), actor)
		if err != nil {
			respondErr(c, err)
			return
		}
		caps := actor.Caps.Names()
		if caps == nil {
			caps = []string{}
		}
		c.JSON(http.StatusOK, MeResponse{Employee: *e, Capabilities: caps})
	}
}

// @Summary  List staff
// @Tags     admin
// @Security BearerAuth
// @Success  200  {array}  domain.Employee
// @Router   /admin/staff [get]
func handleListEmployees(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Staff.ListEmployees(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create staff member
// @Tags     admin
// @Security BearerAuth
// @Param    req  body  CreateEmployeeRequest  true  "payload"
// @Success  201  {object}  domain.Employee
// @Failure  409  {object}  ErrorResponse  "login taken"
// @Router   /admin/staff [post]
func handleCreateEmployee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEmployeeRequest
		if !bindJSON(c, &req) {
			return
		}
		e, err := svcs.Staff.CreateEmployee(c.Request.Context(), actorFrom(c), staff.CreateInput{
			FullName: req.FullName,
			Login:    req.Login,
			Password: req.Password,
			Role:     req.Position,
			Phone:    req.Phone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Get staff member
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  int  true  "Employee ID"
// @Success  200  {object}  domain.Employee
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/staff/{id} [get]
func handleGetEmployee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Staff.GetEmployee(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Update staff member
// @Description Omitted fields keep their value. The login cannot change.
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  int                    true  "Employee ID"
// @Param    req  body  UpdateEmployeeRequest  true  "payload"
// @Success  200  {object}  domain.Employee
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/staff/{id} [put]
func handleUpdateEmployee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateEmployeeRequest
		if !bindJSON(c, &req) {
			return
		}
		e, err := svcs.Staff.UpdateEmployee(c.Request.Context(), actorFrom(c), id, staff.UpdateInput{
			FullName: req.FullName,
			Phone:    req.Phone,
			Role:     req.Position,
			Password: req.Password,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Delete staff member
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  int  true  "Employee ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "employee has orders"
// @Router   /admin/staff/{id} [delete]
func handleDeleteEmployee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Staff.DeleteEmployee(c.Request.Context(), actorFrom(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List staff positions
// @Tags     admin
// @Security BearerAuth
// @Success  200  {array}  domain.Position
// @Router   /admin/positions [get]
func handleListPositions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Staff.Positions(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
