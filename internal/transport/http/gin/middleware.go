package httpgin

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/domain"
)

const (
	ctxRequestID = "request_id"
	ctxActor     = "actor"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		reqID, _ := c.Get(ctxRequestID)

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.String("ua", c.Request.UserAgent()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", latency),
			slog.Int("bytes_out", c.Writer.Size()),
		}
		if a, ok := c.Get(ctxActor); ok {
			attrs = append(attrs, slog.Int64("staff_id", a.(domain.Actor).StaffID))
		}

		// convert []slog.Attr to []any for slog.Group variadic parameter
		anyAttrs := make([]any, len(attrs))
		for i := range attrs {
			anyAttrs[i] = attrs[i]
		}

		if len(c.Errors) > 0 {
			anyAttrs = append(anyAttrs, slog.String("error", c.Errors.String()))
			logger.Error("http", slog.Group("http", anyAttrs...))
		} else {
			logger.Info("http", slog.Group("http", anyAttrs...))
		}
	}
}

// AuthMiddleware resolves the bearer token into a domain.Actor once per request.
func AuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token", Code: "unauthorized"})
			return
		}

		actor, err := issuer.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token", Code: "unauthorized"})
			return
		}

		c.Set(ctxActor, actor)
		c.Next()
	}
}

// RequireCapability rejects actors lacking want before the handler runs.
func RequireCapability(want domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).Can(want) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: "forbidden"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, ok := c.Get(ctxActor)
	if !ok {
		return domain.Actor{}
	}
	a, _ := v.(domain.Actor)
	return a
}
