package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"*"})(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header to be set")
	}
}

func TestCORSMiddleware_AllowList(t *testing.T) {
	handler := CORSMiddleware([]string{"https://charts.example.com"})(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://charts.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://charts.example.com" {
		t.Errorf("Expected allowed origin to be echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS origin for unknown origin, got %q", got)
	}
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	called := false
	handler := CORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for OPTIONS, got %d", http.StatusOK, w.Code)
	}
	if called {
		t.Error("Preflight should not reach the handler")
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	handler := LoggingMiddleware()(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("Expected generated request id, got %q", w.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("Expected request id to be propagated, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	handler := ErrorHandlingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestErrorHandlingMiddleware_NonStringPanic(t *testing.T) {
	handler := ErrorHandlingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(2)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected status %d, got %d", i+1, http.StatusOK, w.Code)
		}
	}

	// Third request should be rate limited
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}

	// Another client has its own window
	other := httptest.NewRequest("GET", "/test", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for a second client, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := RateLimitMiddleware(0)(okHandler())
	req := httptest.NewRequest("GET", "/test", nil)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
	}
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	return token
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	var user string
	handler := AuthMiddleware(NewAuthManager(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/indicators", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if user != AnonymousUser {
		t.Errorf("Expected anonymous user, got %q", user)
	}
}

func TestAuthMiddleware_Enforced(t *testing.T) {
	var user string
	handler := AuthMiddleware(NewAuthManager("secret"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// missing header
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/indicators", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	// wrong secret
	req := httptest.NewRequest("GET", "/api/v1/indicators", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other", jwt.MapClaims{"user_id": "u1"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	// valid
	req = httptest.NewRequest("GET", "/api/v1/indicators", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if user != "u1" {
		t.Errorf("Expected user u1, got %q", user)
	}
}

func TestAuthMiddleware_HealthEndpoint(t *testing.T) {
	handler := AuthMiddleware(NewAuthManager("secret"))(okHandler())

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, w.Code)
		}
	}
}

func TestChainMiddleware(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainMiddleware(mark("outer"), mark("inner"))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("Expected [outer inner], got %v", order)
	}
}
