package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// Middleware is a function that wraps an HTTP handler
type Middleware func(http.Handler) http.Handler

// ChainMiddleware chains middleware so the first one runs outermost
func ChainMiddleware(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// CORSMiddleware handles CORS headers. "*" in origins allows any origin.
func CORSMiddleware(origins []string) Middleware {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware tags each request with an id and logs it once served
func LoggingMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.WithContext(r.Context()).Info("HTTP request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("remote_addr", r.RemoteAddr),
				logger.Int("status", wrapped.statusCode),
				logger.Duration("duration", time.Since(start)),
			)
		})
	}
}

// MetricsMiddleware records request counts and latency labeled by route
// template. It must run inside the router so the matched route is known.
func MetricsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			endpoint := "unmatched"
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}
			status := strconv.Itoa(wrapped.statusCode)
			logger.RequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
			logger.RequestTotal.WithLabelValues(r.Method, endpoint, status).Inc()
		})
	}
}

// ErrorHandlingMiddleware turns handler panics into 500 responses
func ErrorHandlingMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic in handler",
						logger.String("path", r.URL.Path),
						logger.String("error", fmt.Sprint(err)),
					)
					logger.ErrorsTotal.WithLabelValues("api", "panic").Inc()
					respondWithError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware allows requestsPerSecond requests per client IP in
// each one-second window. 0 disables limiting.
func RateLimitMiddleware(requestsPerSecond int) Middleware {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	type clientInfo struct {
		count     int
		lastReset time.Time
	}

	clients := make(map[string]*clientInfo)
	var mu sync.Mutex

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			now := time.Now()

			mu.Lock()
			info, exists := clients[clientIP]
			if !exists || now.Sub(info.lastReset) >= time.Second {
				// prune idle clients
				if len(clients) > 1024 {
					for key, c := range clients {
						if now.Sub(c.lastReset) > time.Minute {
							delete(clients, key)
						}
					}
				}
				info = &clientInfo{lastReset: now}
				clients[clientIP] = info
			}
			info.count++
			limited := info.count > requestsPerSecond
			mu.Unlock()

			if limited {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware requires a valid bearer token when auth is enabled.
// Health and metrics endpoints are always open.
func AuthMiddleware(auth *AuthManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOpenPath(r.URL.Path) || r.Method == http.MethodOptions || !auth.Enabled() {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), AnonymousUser)))
				return
			}

			token, err := ExtractTokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Missing or malformed authorization header")
				return
			}
			userID, err := auth.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected token", logger.ErrorField(err))
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func isOpenPath(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/metrics":
		return true
	}
	return false
}

// Helper functions

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"error": message,
		"code":  code,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// first hop is the client
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
