// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// Chain applies middlewares so that the first listed sees the request first.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// --- rate limiting ---

// maxTrackedClients bounds the per-IP buckets kept; the least recently seen
// client is forgotten first and starts over with a full bucket.
const maxTrackedClients = 4096

// RateLimiter hands each client IP its own token bucket.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	buckets *lru.Cache
}

// NewRateLimiter allows rps requests per second per IP, with bursts of up to
// burst requests.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	buckets, err := lru.New(maxTrackedClients)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &RateLimiter{rps: rate.Limit(rps), burst: max(burst, 1), buckets: buckets}
}

func (rl *RateLimiter) bucket(ip string) *rate.Limiter {
	if b, ok := rl.buckets.Get(ip); ok {
		return b.(*rate.Limiter)
	}
	b := rate.NewLimiter(rl.rps, rl.burst)
	if prev, ok, _ := rl.buckets.PeekOrAdd(ip, b); ok {
		return prev.(*rate.Limiter)
	}
	return b
}

// Allow takes a token for ip, reporting false when none is left.
func (rl *RateLimiter) Allow(ip string) bool { return rl.bucket(ip).Allow() }

// Remaining is the number of whole tokens ip has right now.
func (rl *RateLimiter) Remaining(ip string) int {
	return max(0, int(math.Floor(rl.bucket(ip).Tokens())))
}

// RetryAfter is how many seconds ip must wait for its next token, at least 1.
func (rl *RateLimiter) RetryAfter(ip string) int {
	r := rl.bucket(ip).Reserve()
	if !r.OK() {
		return 1
	}
	defer r.Cancel()
	return max(1, int(math.Ceil(r.Delay().Seconds())))
}

// RateLimitMiddleware answers 429 with a Retry-After once a client's bucket
// is empty.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
			if !limiter.Allow(ip) {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(limiter.RetryAfter(ip)))
				log.Printf("server: rate limited %s", ip)
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(ip)))
			next.ServeHTTP(w, r)
		})
	}
}

// --- request bodies ---

// BodyLimitMiddleware rejects declared bodies over maxBytes up front and caps
// the rest while they are read.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
					fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// --- access log ---

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// LoggingMiddleware writes one access line per request. Prompts and replies
// are not logged.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Printf("%s %s %d %dB %s %s",
				r.Method, r.URL.Path, rec.status, rec.bytes,
				time.Since(start).Round(time.Millisecond), GetClientIP(r))
		})
	}
}

// --- hardening ---

// SecurityHeadersMiddleware marks every response as uncacheable JSON that
// must not be framed or sniffed.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
		"Referrer-Policy":         "no-referrer",
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Printf("server: panic in %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// --- client address ---

// trustedProxies are the only peers whose X-Forwarded-For / X-Real-IP
// headers are believed: loopback and private ranges.
var trustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
}

func trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// GetClientIP is the address rate limits and logs are keyed by: the peer
// address, or the forwarded client when the peer is a trusted proxy.
func GetClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !trusted(peer) {
		return peer
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}
