package middleware

import (
	"net/http"
	"strings"

	"screenhub/internal/httpx"
)

// CORSPolicy holds the allow-listed origins. A single "*" entry allows any
// origin. The policy is shared with the rate-limit stage so rejections made
// before the CORS stage still carry the headers.
type CORSPolicy struct {
	allowedOrigins []string
	allowAny       bool
}

func NewCORSPolicy(origins []string) *CORSPolicy {
	policy := &CORSPolicy{}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			policy.allowAny = true
			continue
		}
		policy.allowedOrigins = append(policy.allowedOrigins, origin)
	}
	return policy
}

func (p *CORSPolicy) originAllowed(origin string) bool {
	if p.allowAny {
		return true
	}
	for _, allowed := range p.allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Apply sets the response CORS headers for an allowed origin. It is safe to
// call for requests without an Origin header (same-origin, curl); it then
// sets nothing and reports true.
func (p *CORSPolicy) Apply(w http.ResponseWriter, r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if !p.originAllowed(origin) {
		return false
	}

	headers := w.Header()
	if p.allowAny {
		headers.Set("Access-Control-Allow-Origin", "*")
	} else {
		headers.Set("Access-Control-Allow-Origin", origin)
		headers.Set("Vary", "Origin")
	}
	headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	headers.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	headers.Set("Access-Control-Max-Age", "86400")
	return true
}

// CORSStage validates the Origin header, decorates allowed responses, and
// terminates preflight requests before the inner stages.
type CORSStage struct {
	policy *CORSPolicy
}

func NewCORSStage(policy *CORSPolicy) *CORSStage {
	return &CORSStage{policy: policy}
}

func (s *CORSStage) Name() string { return StageCORS }

func (s *CORSStage) Run(w http.ResponseWriter, r *http.Request, _ *RequestState) bool {
	if !s.policy.Apply(w, r) {
		httpx.WriteFailure(w, http.StatusForbidden, httpx.ErrOriginNotAllowed, "origin not allowed")
		return false
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return false
	}

	return true
}
