package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-access/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_RefillsPerInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "buckets are per IP")

	now = now.Add(30 * time.Second)
	assert.False(t, rl.Allow("1.1.1.1"))

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.GET("/x", rl.Middleware(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func brotliRouter(body string) *gin.Engine {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64, Skipper: SkipPathSuffix("/export")}))
	handler := func(c *gin.Context) {
		// Several writes exercise the switch from buffering to compressing.
		for _, part := range strings.SplitAfter(body, "\n") {
			_, _ = c.Writer.WriteString(part)
		}
	}
	r.GET("/data", handler)
	r.GET("/data/export", handler)
	return r
}

func TestBrotli_CompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("line of candidate results\n", 50)
	r := brotliRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

func TestBrotli_PassThrough(t *testing.T) {
	cases := []struct {
		name, path, accept, body string
	}{
		{"small body", "/data", "br", "tiny\n"},
		{"client without br", "/data", "gzip", strings.Repeat("x\n", 200)},
		{"skipped path", "/data/export", "br", strings.Repeat("x\n", 200)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := brotliRouter(tc.body)
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Accept-Encoding", tc.accept)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}

type stubValidator struct{ claims *service.Claims }

func (s stubValidator) ValidateToken(token string) (*service.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func TestRequireAdminJWT(t *testing.T) {
	claims := &service.Claims{AdminID: 7, Username: "root", TokenType: service.TokenTypeAdmin}
	r := gin.New()
	r.GET("/admin", RequireAdminJWT(stubValidator{claims}), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Username)
	})

	cases := []struct {
		header string
		status int
		body   string
	}{
		{"", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"Basic good", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"bearer good", http.StatusOK, "root"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		assert.Contains(t, w.Body.String(), tc.body, tc.header)
	}
}
