package grpc

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"servicebook/backend/internal/auth"
	"servicebook/backend/internal/domain"
)

type tokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}

// RequestTimeoutInterceptor bounds requests that arrive without a client deadline.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// AuthInterceptor resolves the bearer token in the authorization metadata into the
// request's actor.
func AuthInterceptor(v tokenVerifier, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token := bearerToken(ctx)
		if token == "" {
			log.Warn("missing bearer token", slog.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "authorization bearer token is required")
		}
		actor, err := v.Verify(token)
		if err != nil {
			log.Warn("token rejected", slog.String("method", info.FullMethod), slog.Any("err", err))
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(auth.WithActor(ctx, actor), req)
	}
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	v := strings.TrimSpace(values[0])
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(v[7:])
}

// rateLimiterIdleTTL is how long a caller's bucket survives without requests.
const rateLimiterIdleTTL = 10 * time.Minute

// RateLimiter hands out one token bucket per caller. Callers are keyed by actor id when
// authenticated and by peer address otherwise. Buckets idle for rateLimiterIdleTTL are
// swept on a later request.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*callerBucket
	lastSweep time.Time
}

type callerBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*callerBucket),
	}
}

func (r *RateLimiter) allow(key string) bool {
	now := r.now()

	r.mu.Lock()
	if r.lastSweep.IsZero() {
		r.lastSweep = now
	}
	if now.Sub(r.lastSweep) >= rateLimiterIdleTTL {
		r.sweepLocked(now)
	}
	b, ok := r.limiters[key]
	if !ok {
		b = &callerBucket{lim: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = b
	}
	b.seen = now
	r.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

func (r *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range r.limiters {
		if now.Sub(b.seen) >= rateLimiterIdleTTL {
			delete(r.limiters, key)
		}
	}
	r.lastSweep = now
}

// Interceptor must run after AuthInterceptor so the actor is known.
func (r *RateLimiter) Interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if r.limit <= 0 {
			return handler(ctx, req)
		}
		if !r.allow(callerKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests, slow down")
		}
		return handler(ctx, req)
	}
}

func callerKey(ctx context.Context) string {
	if actor, ok := auth.ActorFrom(ctx); ok {
		return "actor:" + actor.ID.String()
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "anonymous"
}
