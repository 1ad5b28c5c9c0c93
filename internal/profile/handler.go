package profile

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"

	"screenhub/internal/httpx"
	"screenhub/internal/middleware"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type updateRequest struct {
	DisplayName    string `json:"display_name"`
	FavouriteGenre string `json:"favourite_genre"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, user middleware.Identity) {
	p, err := h.repo.GetByEmail(r.Context(), user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteFailure(w, http.StatusNotFound, httpx.ErrNotFound, "profile not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to load profile")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, user middleware.Identity) {
	var body updateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "invalid json body")
		return
	}

	body.DisplayName = strings.TrimSpace(body.DisplayName)
	body.FavouriteGenre = strings.TrimSpace(body.FavouriteGenre)
	if body.DisplayName == "" || utf8.RuneCountInString(body.DisplayName) > 100 {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "display_name must be between 1 and 100 characters")
		return
	}
	if utf8.RuneCountInString(body.FavouriteGenre) > 50 {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "favourite_genre must be at most 50 characters")
		return
	}

	p, err := h.repo.Update(r.Context(), user.Email, body.DisplayName, body.FavouriteGenre)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteFailure(w, http.StatusNotFound, httpx.ErrNotFound, "profile not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to update profile")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, p)
}
