package core

import (
	"math"
	"net/http"
	"strconv"

	"skysense/internal/types"
)

// RateLimit throttles the bridge with a single token bucket shared by all
// clients. /health is exempt.
//
// If no limiter is configured, the middleware passes through. Rejected
// requests get 429 with a Retry-After header in whole seconds.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		res := s.limiter.Reserve()
		if !res.OK() {
			s.rejectRateLimited(w, r, 1)
			return
		}
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			s.rejectRateLimited(w, r, int(math.Ceil(delay.Seconds())))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	s.Logger.WarnContext(r.Context(), "bridge rate limit exceeded",
		"path", r.URL.Path,
		"retry_after", retryAfter,
	)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	Error(w, r, types.NewAppError(types.ErrCodeUpstreamRateLimited,
		"too many requests to the local bridge", nil))
}
