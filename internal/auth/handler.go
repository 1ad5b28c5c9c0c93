package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"

	"screenhub/internal/httpx"
	"screenhub/internal/middleware"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionRequest struct {
	SessionToken string `json:"session_token"`
}

type refreshResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	if message, ok := validateSignup(body); !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, message)
		return
	}

	creds, err := h.service.SignUp(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "email already registered")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to sign up")
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, creds)
}

func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var body signinRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	creds, err := h.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "invalid email or password")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to sign in")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, creds)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	token, expiresIn, err := h.service.RefreshToken(r.Context(), body.SessionToken)
	if err != nil {
		if errors.Is(err, ErrInvalidSessionToken) {
			httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "invalid session")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to refresh token")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, refreshResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: expiresIn,
	})
}

func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	if strings.TrimSpace(body.SessionToken) == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "session_token is required")
		return
	}

	if err := h.service.SignOut(r.Context(), body.SessionToken); err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to sign out")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// Me echoes the identity the auth stage resolved for this request.
func (h *Handler) Me(w http.ResponseWriter, _ *http.Request, user middleware.Identity) {
	httpx.WriteSuccess(w, http.StatusOK, map[string]string{
		"user_id": user.UserID,
		"email":   user.Email,
	})
}

func validateSignup(body signupRequest) (string, bool) {
	name := strings.TrimSpace(body.Name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return "name must be between 1 and 100 characters", false
	}
	if !emailRegex.MatchString(strings.TrimSpace(strings.ToLower(body.Email))) {
		return "email format is invalid", false
	}
	if len(body.Password) < 8 || len(body.Password) > 200 {
		return "password must be between 8 and 200 characters", false
	}
	return "", true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "invalid json body")
		return false
	}

	return true
}
