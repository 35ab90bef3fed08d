package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/ratelimit"

	"github.com/NandaniSingh69/PharmaTrack/config"
	"github.com/NandaniSingh69/PharmaTrack/handlers"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/metrics"
)

// RealIPMiddleware replaces RemoteAddr with the client IP: the first
// X-Forwarded-For entry when present, otherwise RemoteAddr without its port
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP from the comma-separated list
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			r.RemoteAddr = host
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware rejects requests that bypassed the reverse proxy
func BlockDirectAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check if request is coming from nginx (trusted proxy)
		if r.Header.Get("X-Real-IP") == "" && r.Header.Get("X-Forwarded-For") == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			// Allow localhost access for development
			if host == "127.0.0.1" || host == "::1" || host == "localhost" {
				next.ServeHTTP(w, r)
				return
			}

			logging.Warn("Direct access blocked", "remote_addr", r.RemoteAddr, "user_agent", r.Header.Get("User-Agent"))
			handlers.RespondWithError(w, http.StatusForbidden, "Direct access not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestSizeMiddleware limits the size of request headers and body
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if length, err := strconv.ParseInt(contentLength, 10, 64); err == nil && length > cfg.MaxRequestBody {
					logging.Warn("Request body too large",
						"content_length", length,
						"max_allowed", cfg.MaxRequestBody,
						"remote_addr", r.RemoteAddr,
						"user_agent", r.UserAgent())

					handlers.RespondWithError(w, http.StatusRequestEntityTooLarge,
						fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", cfg.MaxRequestBody))
					return
				}
			}

			// Check header size (rough estimate)
			headerSize := int64(0)
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}

			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())

				handlers.RespondWithError(w, http.StatusRequestHeaderFieldsTooLarge,
					fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	clients  map[string]*ratelimit.Bucket
	mu       sync.RWMutex
	rate     int64
	capacity int64
}

// NewRateLimiter creates a rate limiter refilling rate tokens per second up to capacity
func NewRateLimiter(rate, capacity int64) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*ratelimit.Bucket),
		rate:     rate,
		capacity: capacity,
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(float64(rl.rate), rl.capacity)
			rl.clients[clientIP] = bucket
			metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
		}
		rl.mu.Unlock()
	}

	return bucket
}

// Cleanup removes clients whose buckets have refilled completely
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
}

// runCleanup calls Cleanup every interval until ctx is done
func (rl *RateLimiter) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// getTokenCost prices a request by the work its endpoint does
func getTokenCost(r *http.Request) int64 {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == "/metrics":
		return 0
	case path == "/health":
		return 5
	case path == "/v1/interactions":
		return 10
	case path == "/v1/medicines":
		if r.URL.Query().Get("search") != "" {
			return 20
		}
		return 5
	case strings.HasPrefix(path, "/v1/medicines/") && strings.HasSuffix(path, "/alternatives"):
		return 50
	case strings.HasPrefix(path, "/v1/medicines/"):
		return 5
	}

	return 5 // Default cost for other endpoints
}

// Middleware rejects requests once the client's bucket cannot pay for them
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	limit := strconv.FormatInt(rl.capacity, 10)
	rate := strconv.FormatInt(rl.rate, 10)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(r.RemoteAddr)
		tokenCost := getTokenCost(r)

		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Rate", rate)

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			handlers.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))

		next.ServeHTTP(w, r)
	})
}
