// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware holds the http.Handler decorators mounted in front of the
login, captcha and portal routes.

Chain order in internal/api: TrustedProxies, RequestID, StructuredLogger,
PanicRecovery, CORS, RateLimit, Authenticate.
RateLimit keys its buckets on RemoteAddr, so TrustedProxies must run first
for clients behind a load balancer to get separate buckets.
*/
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/constants"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/internal/platform/respond"
	"github.com/taibuivan/bcbbs/pkg/uuid"
)

// # Correlation

// RequestID tags the request with a correlation ID. A client-supplied
// X-Request-ID is echoed only when it is a canonical UUID; anything else is
// replaced so it cannot inject text into logs.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if !uuid.Valid(requestID) {
				requestID = uuid.New()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Access Log

// statusRecorder remembers the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// levelFor maps a response status onto the access log level.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// StructuredLogger stores a request-scoped logger in the context and writes one
// "http_request_finished" line per request.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			started := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			request = request.WithContext(ctxutil.WithLogger(request.Context(), requestLogger))

			next.ServeHTTP(recorder, request)

			attrs := []slog.Attr{
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(started).Milliseconds()),
			}
			requestLogger.LogAttrs(request.Context(), levelFor(recorder.status), "http_request_finished", attrs...)
		})
	}
}

// # Rate Limiting

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketSet is one token bucket per client address.
type bucketSet struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
}

func (set *bucketSet) allow(addr string) bool {
	set.mu.Lock()
	defer set.mu.Unlock()

	entry, found := set.buckets[addr]
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(set.rps, set.burst)}
		set.buckets[addr] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// evictIdle forgets addresses not seen within ttl.
func (set *bucketSet) evictIdle(ttl time.Duration) {
	set.mu.Lock()
	defer set.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for addr, entry := range set.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(set.buckets, addr)
		}
	}
}

// RateLimit admits rps requests per second per client address, with bursts up
// to burst. Rejections are 429 RATE_LIMITED with a Retry-After header.
//
// Each call owns its buckets, so the captcha and login routes can stack a
// stricter limiter on top of the global one. Idle buckets are evicted until
// context is cancelled.
func RateLimit(context context.Context, rps float64, burst int) func(http.Handler) http.Handler {
	set := &bucketSet{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-context.Done():
				return
			case <-ticker.C:
				set.evictIdle(constants.RateLimitClientTTL)
			}
		}
	}()

	rejection := apperr.RateLimited(retryAfterSeconds(rps))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if set.allow(RealIP(request)) {
				next.ServeHTTP(writer, request)
				return
			}
			respond.Error(writer, request, rejection)
		})
	}
}

// retryAfterSeconds is the time for one token to refill, rounded up.
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/rps)))
}

// # Panics

// PanicRecovery turns a handler panic into a 500 INTERNAL_ERROR and logs the
// goroutine stack. The panic value is never sent to the client.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				stack := make([]byte, 4096)
				stack = stack[:runtime.Stack(stack, false)]

				ctx := request.Context()
				ctxutil.GetLogger(ctx).ErrorContext(ctx, "panic_recovered",
					slog.Any("panic", recovered),
					slog.String("stack", string(stack)),
				)
				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # CORS

// OriginPolicy is satisfied by *config.Config.
type OriginPolicy interface {
	IsDevelopment() bool
	OriginAllowed(origin string) bool
}

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Accept, Content-Type, Authorization, X-Request-ID"
	corsExposeHeaders = "Retry-After, X-Request-ID"
)

// CORS reflects the Origin header when policy admits it (any origin in
// development). Preflight requests are answered with 204 whether or not the
// origin was admitted; the browser enforces the missing headers.
func CORS(policy OriginPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			if policy.IsDevelopment() || policy.OriginAllowed(origin) {
				header := writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", corsAllowMethods)
				header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", "300")
				header.Add("Vary", "Origin")
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// # Client Address

/*
TrustedProxies replaces RemoteAddr with the client address reported by a
reverse proxy, but only when the direct peer lies inside ranges.

X-Forwarded-For is walked from the right, skipping hops that are themselves
trusted; the first untrusted hop is the client. X-Real-IP is used when no
X-Forwarded-For header is present. Requests from any other peer keep their
socket address, so a client cannot pick its own rate-limit bucket.

Mount it first in the chain.
*/
func TrustedProxies(ranges []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(ranges) == 0 {
			return next
		}

		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			peer, ok := peerAddr(request.RemoteAddr)
			if ok && inRanges(ranges, peer) {
				if client, found := forwardedClient(request, ranges); found {
					request.RemoteAddr = netip.AddrPortFrom(client, 0).String()
				}
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RealIP returns the host part of RemoteAddr.
func RealIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

func peerAddr(remoteAddr string) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(remoteAddr)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func inRanges(ranges []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range ranges {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedClient extracts the right-most untrusted hop from the forwarding headers.
func forwardedClient(request *http.Request, ranges []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, value := range request.Header.Values(constants.HeaderXForwardedFor) {
		hops = append(hops, strings.Split(value, ",")...)
	}

	if len(hops) == 0 {
		addr, err := netip.ParseAddr(strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)))
		if err != nil {
			return netip.Addr{}, false
		}
		return addr.Unmap(), true
	}

	var client netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !inRanges(ranges, client) {
			return client, true
		}
	}

	// Every parsable hop was a trusted proxy; the left-most one is the best we have.
	return client, client.IsValid()
}
