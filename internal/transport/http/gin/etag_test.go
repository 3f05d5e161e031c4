package httpgin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONWithCache(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"name": "Main hall"}, "private, max-age=60", true)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, w.Code)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.Contains(t, tag, "W/")
	assert.Equal(t, "private, max-age=60", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"name":"Main hall"}`, w.Body.String())

	t.Run("matching tag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("If-None-Match", tag)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("stale tag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("If-None-Match", `W/"deadbeef"`)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestETagMatches(t *testing.T) {
	tag := `W/"abc"`

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"*", true},
		{`W/"abc"`, true},
		{`"abc"`, true},
		{`"zzz", W/"abc"`, true},
		{`"zzz"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, etagMatches(tt.header, tag), tt.header)
	}
}
