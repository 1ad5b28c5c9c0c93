package middleware

import (
	"net/http"
	"strings"

	"screenhub/internal/httpx"
)

// AuthStage extracts and verifies the bearer token, then records the
// resolved identity on the request state for the terminal handler.
type AuthStage struct {
	verifier Verifier
}

func NewAuthStage(verifier Verifier) *AuthStage {
	return &AuthStage{verifier: verifier}
}

func (s *AuthStage) Name() string { return StageAuth }

func (s *AuthStage) Run(w http.ResponseWriter, r *http.Request, state *RequestState) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "Missing token")
		return false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "Invalid token")
		return false
	}

	identity, err := s.verifier.VerifyToken(r.Context(), strings.TrimSpace(parts[1]))
	if err != nil || identity.UserID == "" {
		httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "Invalid token")
		return false
	}

	state.Identity = identity
	state.Authenticated = true
	return true
}
