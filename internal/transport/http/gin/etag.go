package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// writeJSONWithCache writes v as JSON with an ETag and Cache-Control header.
// A matching If-None-Match yields 304 without a body.
func writeJSONWithCache(c *gin.Context, status int, v any, cacheControl string, weak bool) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	tag := etagOf(b, weak)
	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}

	if etagMatches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(status, "application/json; charset=utf-8", b)
}

func etagOf(body []byte, weak bool) string {
	sum := sha256.Sum256(body)
	tag := `"` + hex.EncodeToString(sum[:16]) + `"`
	if weak {
		tag = "W/" + tag
	}
	return tag
}

// etagMatches applies the weak comparison If-None-Match uses.
func etagMatches(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
