package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"screenhub/internal/httpx"
	"screenhub/internal/observability"
)

// RateLimitStage throttles per client IP over a sliding window. It runs
// before the CORS stage, so it applies the CORS policy to its own 429
// rejections rather than relying on a later stage that never runs.
type RateLimitStage struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	hitByKey  map[string][]time.Time
	maxKeys   int
	policy    *CORSPolicy
	now       func() time.Time
}

func NewRateLimitStage(maxHits int, window time.Duration, policy *CORSPolicy) *RateLimitStage {
	if maxHits <= 0 {
		maxHits = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RateLimitStage{
		maxHits:  maxHits,
		window:   window,
		hitByKey: make(map[string][]time.Time),
		maxKeys:  5000,
		policy:   policy,
		now:      time.Now,
	}
}

func (s *RateLimitStage) Name() string { return StageRateLimit }

func (s *RateLimitStage) Run(w http.ResponseWriter, r *http.Request, _ *RequestState) bool {
	key := observability.ClientIP(r)

	allowed, retryAfter := s.allow(key, s.now().UTC())
	if !allowed {
		s.policy.Apply(w, r)
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		httpx.WriteFailure(w, http.StatusTooManyRequests, httpx.ErrRateLimited, "too many requests")
		return false
	}

	return true
}

func (s *RateLimitStage) allow(key string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hitByKey[key]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= s.maxHits {
		retryAfter := filtered[0].Add(s.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		s.hitByKey[key] = filtered
		return false, retryAfter
	}

	filtered = append(filtered, now)
	s.hitByKey[key] = filtered

	if len(s.hitByKey) > s.maxKeys {
		for candidate, value := range s.hitByKey {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(s.hitByKey, candidate)
			}
		}
	}

	return true, 0
}
