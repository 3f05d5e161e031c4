package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// idemCall tracks one Idempotency-Key guarded create call.
type idemCall struct {
	store *redisrepo.IdempotencyStore
	key   string
	raw   string
}

// beginIdempotent replays a stored response for a repeated Idempotency-Key or
// takes the in-flight lock. handled is true when a response has been written.
func beginIdempotent(c *gin.Context, store *redisrepo.IdempotencyStore, route string) (call idemCall, handled bool) {
	raw := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if store == nil || raw == "" {
		return idemCall{}, false
	}

	call = idemCall{
		store: store,
		key:   redisrepo.KeyIdem(route, actorFrom(c).StaffID, raw),
		raw:   raw,
	}
	ctx := c.Request.Context()

	if payload, ok, _ := store.GetResult(ctx, call.key); ok {
		call.replay(c, payload)
		return call, true
	}

	locked, err := store.AcquireLock(ctx, call.key, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return call, true
	}
	if !locked {
		if payload, ok, _ := store.GetResult(ctx, call.key); ok {
			call.replay(c, payload)
			return call, true
		}
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress", Code: "conflict"})
		return call, true
	}

	return call, false
}

func (ic idemCall) replay(c *gin.Context, payload string) {
	c.Header("Idempotency-Key", ic.raw)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// fail releases the lock so the client may retry with the same key.
func (ic idemCall) fail(c *gin.Context) {
	if ic.key == "" {
		return
	}
	_ = ic.store.Release(c.Request.Context(), ic.key)
}

// created stores resp under the key and writes it with 201.
func (ic idemCall) created(c *gin.Context, resp any) {
	if ic.key != "" {
		if b, err := json.Marshal(resp); err == nil {
			_ = ic.store.SaveResult(c.Request.Context(), ic.key, string(b))
		}
		c.Header("Idempotency-Key", ic.raw)
	}
	c.JSON(http.StatusCreated, resp)
}
