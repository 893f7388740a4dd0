package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/lib/logger/slogdiscard"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const secret = "s3cret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, restaurantID uint64, role string) http.Header {
	t.Helper()
	tok, err := utils.NewScopeToken(secret, restaurantID, role, time.Minute)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + tok}}
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	scoped := func(c echo.Context) error {
		id, ok := RestaurantID(c)
		require.True(t, ok)
		return c.String(http.StatusOK, strconv.FormatUint(id, 10))
	}
	e.GET("/bookings", scoped, JWTAuth(secret))
	e.GET("/reconcile", scoped, JWTAuth(secret), RequireRole(RoleOperator))

	testCases := []struct {
		name   string
		target string
		header http.Header
		status int
		body   string
	}{
		{"no header", "/bookings", nil, http.StatusUnauthorized, ""},
		{"not bearer", "/bookings", http.Header{"Authorization": {"Basic abc"}}, http.StatusUnauthorized, ""},
		{"bad token", "/bookings", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized, ""},
		{"staff scoped", "/bookings", bearer(t, 12, RoleStaff), http.StatusOK, "12"},
		{"staff on operator route", "/reconcile", bearer(t, 12, RoleStaff), http.StatusForbidden, ""},
		{"operator", "/reconcile", bearer(t, 3, RoleOperator), http.StatusOK, "3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tc.target, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(RoleStaff))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/x", nil).Code)
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestTokenBucket_Redis(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(rateConfig(), rdb, slogdiscard.NewDiscardLogger()))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", nil).Code)
	rec := do(e, http.MethodPost, "/book", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/book", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "rl:ip:")
	assert.Contains(t, keys[0], "POST /book")
}

func TestTokenBucket_RedisDownFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(rateConfig(), rdb, slogdiscard.NewDiscardLogger()))
	mr.Close()

	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", nil).Code)
	}
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(rateConfig(), nil, slogdiscard.NewDiscardLogger()))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", nil).Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/book", nil).Code)

	other := http.Header{"X-Real-Ip": {"10.0.0.9"}}
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", other).Code)
}

func TestTokenBucket_Disabled(t *testing.T) {
	cfg := rateConfig()
	cfg.Enabled = false
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, nil, slogdiscard.NewDiscardLogger()))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", nil).Code)
	}
}

func TestIPRateLimiter_SameLimiterPerKey(t *testing.T) {
	l := NewIPRateLimiter(1, 1, time.Minute)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
	assert.Equal(t, 2, l.Len())
}

func TestIPRateLimiter_ForgetsIdleKeys(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 1, 50*time.Millisecond)

	spent := l.GetLimiter("10.0.0.1")
	require.True(t, spent.Allow())
	require.False(t, spent.Allow())

	time.Sleep(120 * time.Millisecond)
	fresh := l.GetLimiter("10.0.0.1")
	assert.NotSame(t, spent, fresh)
	assert.True(t, fresh.Allow())
}

func TestIPRateLimiter_UseKeepsKeyAlive(t *testing.T) {
	l := NewIPRateLimiter(1, 1, 200*time.Millisecond)
	first := l.GetLimiter("a")
	for i := 0; i < 4; i++ {
		time.Sleep(80 * time.Millisecond)
		require.Same(t, first, l.GetLimiter("a"))
	}
}

func TestBuildRateKey(t *testing.T) {
	testCases := []struct {
		strategy string
		scoped   bool
		want     string
	}{
		{"ip", true, "rl:ip:10.1.2.3"},
		{"route", true, "rl:route:POST /book"},
		{"ip_route", false, "rl:ip:10.1.2.3:route:POST /book"},
		{"", false, "rl:ip:10.1.2.3:route:POST /book"},
		{"caller", true, "rl:caller:r42"},
		{"caller", false, "rl:caller:anon"},
		{"CALLER_ROUTE", true, "rl:caller:r42:route:POST /book"},
		{"caller_route", false, "rl:caller:anon:route:POST /book"},
	}
	for _, tc := range testCases {
		t.Run(tc.strategy, func(t *testing.T) {
			cfg := rateConfig()
			cfg.KeyStrategy = tc.strategy

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/book", nil)
			req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath("/book")
			if tc.scoped {
				c.Set(CtxRestaurantID, uint64(42))
			}
			assert.Equal(t, tc.want, buildRateKey(cfg, c))
		})
	}
}

func TestTokenBucket_CallerStrategySharesBucketAcrossIPs(t *testing.T) {
	cfg := rateConfig()
	cfg.KeyStrategy = "caller"
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		JWTAuth(secret), NewTokenBucket(cfg, nil, slogdiscard.NewDiscardLogger()))

	from := func(ip string, restaurantID uint64) http.Header {
		h := bearer(t, restaurantID, RoleStaff)
		h.Set(echo.HeaderXRealIP, ip)
		return h
	}
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", from("10.0.0.1", 7)).Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", from("10.0.0.2", 7)).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/book", from("10.0.0.3", 7)).Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/book", from("10.0.0.3", 8)).Code)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      []string{"GET"},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1024,
	}
}

func TestRedisCache(t *testing.T) {
	_, rdb := newRedis(t)
	var calls atomic.Int32
	e := echo.New()
	e.GET("/slots/:id", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"slot_id": c.Param("id")})
	}, NewRedisCache(cacheConfig(), rdb, slogdiscard.NewDiscardLogger()))

	first := do(e, http.MethodGet, "/slots/1", nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(e, http.MethodGet, "/slots/1", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))

	other := do(e, http.MethodGet, "/slots/2", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"slot_id":"2"}`, other.Body.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 16
	e := echo.New()
	mw := NewRedisCache(cfg, rdb, slogdiscard.NewDiscardLogger())
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}, mw)
	e.GET("/large", func(c echo.Context) error {
		return c.String(http.StatusOK, "this body is longer than sixteen bytes")
	}, mw)

	do(e, http.MethodGet, "/missing", nil)
	rec := do(e, http.MethodGet, "/large", nil)
	assert.Equal(t, "this body is longer than sixteen bytes", rec.Body.String())
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_NilClientPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/slots/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewRedisCache(cacheConfig(), nil, slogdiscard.NewDiscardLogger()))

	rec := do(e, http.MethodGet, "/slots/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
