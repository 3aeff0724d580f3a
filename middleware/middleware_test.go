package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
)

func init() { gin.SetMode(gin.TestMode) }

func do(r http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newAuthRouter(t *testing.T) (*gin.Engine, config.SecurityConfig, cache.Cache) {
	t.Helper()
	sec := config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	r := gin.New()
	r.Use(Auth(sec, c))
	r.GET("/protected", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"account_id": GetAccountID(ctx), "token": GetToken(ctx)})
	})
	return r, sec, c
}

func login(t *testing.T, c cache.Cache, accountID int64) string {
	t.Helper()
	tok, err := GenerateToken(accountID, "u", testSecret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), SessionKey(tok), "1", time.Hour))
	return tok
}

func TestAuth(t *testing.T) {
	r, _, c := newAuthRouter(t)
	tok := login(t, c, 42)

	w := do(r, http.MethodGet, "/protected", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account_id":42`)

	w = do(r, http.MethodGet, "/protected?token="+tok, nil)
	assert.Equal(t, http.StatusOK, w.Code, "query token is accepted for event streams")
}

func TestAuth_Rejections(t *testing.T) {
	r, _, c := newAuthRouter(t)
	live := login(t, c, 1)
	revoked, err := GenerateToken(1, "u", testSecret, time.Hour)
	require.NoError(t, err)

	cases := map[string]map[string]string{
		"missing":   nil,
		"no bearer": {"Authorization": "Token " + live},
		"invalid":   {"Authorization": "Bearer garbage"},
		"revoked":   {"Authorization": "Bearer " + revoked},
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/protected", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTraceID(t *testing.T) {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetTraceID(c)) })

	w := do(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(TraceIDHeader), 36)
	assert.Equal(t, w.Header().Get(TraceIDHeader), w.Body.String())

	w = do(r, http.MethodGet, "/", map[string]string{TraceIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())

	w = do(r, http.MethodGet, "/", map[string]string{TraceIDHeader: strings.Repeat("x", 200)})
	assert.Len(t, w.Body.String(), 36, "oversized ids are replaced")
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 0.001, 3)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	ip1 := map[string]string{"X-Real-IP": "10.0.1.1"}
	for i := range 3 {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip1).Code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/", ip1).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", map[string]string{"X-Real-IP": "10.0.1.2"}).Code)
}

func TestRateLimit_KeyedByAccount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 0.001, 1)
	assert.True(t, rl.Allow("acct:1"))
	assert.False(t, rl.Allow("acct:1"))
	assert.True(t, rl.Allow("acct:2"))
}

func TestIPWhitelist(t *testing.T) {
	build := func(entries []string) *gin.Engine {
		r := gin.New()
		r.Use(IPWhitelist(entries, zap.NewNop()))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	ip := func(addr string) map[string]string { return map[string]string{"X-Real-IP": addr} }

	open := build(nil)
	assert.Equal(t, http.StatusOK, do(open, http.MethodGet, "/", ip("8.8.8.8")).Code)

	r := build([]string{"127.0.0.1", "10.0.0.0/8", "::1", "bogus"})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip("127.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip("10.20.30.40")).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip("::1")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/", ip("192.168.1.1")).Code)

	closed := build([]string{"bogus"})
	assert.Equal(t, http.StatusForbidden, do(closed, http.MethodGet, "/", ip("127.0.0.1")).Code)
}

func TestLoggerAndRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(TraceID(), Logger(log), Recovery(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)
	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "trace_id")
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/missing/abc", nil).Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	httpLogs := logs.FilterMessage("http").All()
	require.Len(t, httpLogs, 3)
	assert.Equal(t, zap.InfoLevel, httpLogs[0].Level)
	assert.Equal(t, zap.ErrorLevel, httpLogs[1].Level)
	assert.Equal(t, zap.WarnLevel, httpLogs[2].Level)
	assert.Equal(t, "abc", httpLogs[2].ContextMap()["resource_id"])
}
