package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestSessionKeyExtractor(t *testing.T) {
	extractor := httpx.SessionKeyExtractor("SESSION", "X-Session-ID")

	t.Run("prefers cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "SESSION", Value: "tok-cookie"})
		req.Header.Set("X-Session-ID", "tok-header")
		require.Equal(t, "tok-cookie", extractor(req))
	})

	t.Run("falls back to header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Session-ID", "tok-header")
		require.Equal(t, "tok-header", extractor(req))
	})

	t.Run("empty for anonymous requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Equal(t, "", extractor(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":",
		httpx.SessionKeyExtractor("SESSION", "X-Session-ID"),
		httpx.IPKeyExtractor,
	)

	t.Run("combines multiple extractors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.AddCookie(&http.Cookie{Name: "SESSION", Value: "tok"})
		require.Equal(t, "tok:192.168.1.1", extractor(req))
	})

	t.Run("skips empty values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", extractor(req))
	})
}

func TestChainOrdering(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over limit", func(t *testing.T) {
		config := httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		}

		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		for i := range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()

			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()

		limited.ServeHTTP(rec, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		config := httpx.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Minute,
			Burst:             2,
		}

		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		for range 2 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		req1 := httptest.NewRequest(http.MethodGet, "/", nil)
		req1.RemoteAddr = "192.168.1.1:12345"
		rec1 := httptest.NewRecorder()
		limited.ServeHTTP(rec1, req1)
		require.Equal(t, http.StatusTooManyRequests, rec1.Code)

		req2 := httptest.NewRequest(http.MethodGet, "/", nil)
		req2.RemoteAddr = "192.168.1.2:12345"
		rec2 := httptest.NewRecorder()
		limited.ServeHTTP(rec2, req2)
		require.Equal(t, http.StatusOK, rec2.Code)
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		config := httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		}

		emptyExtractor := func(r *http.Request) string { return "" }
		limited := httpx.RateLimitMiddleware(config, emptyExtractor)(okHandler())

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitBySession(t *testing.T) {
	config := httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	}

	limited := httpx.RateLimitBySession(config, "SESSION", "X-Session-ID")(okHandler())

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		if token != "" {
			req.AddCookie(&http.Cookie{Name: "SESSION", Value: token})
		}
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	// Two sessions behind the same address get independent budgets.
	require.Equal(t, http.StatusOK, send("alpha"))
	require.Equal(t, http.StatusTooManyRequests, send("alpha"))
	require.Equal(t, http.StatusOK, send("beta"))

	// Anonymous requests share the bare IP bucket.
	require.Equal(t, http.StatusOK, send(""))
	require.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestRateLimitProfiles(t *testing.T) {
	profiles := map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	}

	for name, config := range profiles {
		t.Run(name, func(t *testing.T) {
			require.Greater(t, config.RequestsPerWindow, 0, "requests per window must be positive")
			require.Greater(t, config.Window, time.Duration(0), "window must be positive")
			require.Greater(t, config.Burst, 0, "burst must be positive")
		})
	}

	// Verify ordering: strict < moderate < lenient < public
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	defaultConfig := httpx.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	t.Run("NoEnvVarsUsesDefaults", func(t *testing.T) {
		config := httpx.ParseRateLimitFromEnv("TEST", defaultConfig)
		require.Equal(t, defaultConfig, config)
	})

	t.Run("OverrideAllParameters", func(t *testing.T) {
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_REQUESTS", "200")
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_WINDOW_SEC", "30")
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_BURST", "250")
		defer func() {
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_REQUESTS")
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_WINDOW_SEC")
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_BURST")
		}()

		config := httpx.ParseRateLimitFromEnv("TEST", defaultConfig)
		require.Equal(t, 200, config.RequestsPerWindow)
		require.Equal(t, 30*time.Second, config.Window)
		require.Equal(t, 250, config.Burst)
	})

	t.Run("InvalidValuesUseDefaults", func(t *testing.T) {
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_REQUESTS", "invalid")
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_WINDOW_SEC", "-10")
		os.Setenv("GATEHOUSE_RATELIMIT_TEST_BURST", "0")
		defer func() {
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_REQUESTS")
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_WINDOW_SEC")
			os.Unsetenv("GATEHOUSE_RATELIMIT_TEST_BURST")
		}()

		config := httpx.ParseRateLimitFromEnv("TEST", defaultConfig)
		require.Equal(t, defaultConfig, config)
	})
}
