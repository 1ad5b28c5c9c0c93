package watchlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"

	"screenhub/internal/httpx"
	"screenhub/internal/middleware"
	"screenhub/internal/observability"
)

const maxMovieIDLength = 100

// UserDirectory resolves the relational backing record for an identity.
// Implemented by the profile repository; absence is sql.ErrNoRows.
type UserDirectory interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
}

type Handler struct {
	store     *Store
	directory UserDirectory
	logger    *observability.Logger
}

func NewHandler(store *Store, directory UserDirectory, logger *observability.Logger) *Handler {
	return &Handler{store: store, directory: directory, logger: logger}
}

type addRequest struct {
	MovieID string `json:"movie_id"`
}

// Remove deletes a movie from the caller's watchlist. Removal is idempotent:
// a movie that is not on the list yields the same success as one that was
// just deleted, and document-store hiccups during the attempt are downgraded
// to that same success rather than surfaced to the caller.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request, user middleware.Identity) {
	userID, ok := h.resolveUser(w, r, user)
	if !ok {
		return
	}

	movieID := r.PathValue("movieId")
	if message, valid := validateMovieID(movieID); !valid {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, message)
		return
	}

	entry, found, err := h.store.Find(r.Context(), userID, movieID)
	if err != nil {
		h.logger.Warn("watchlist_find_failed", map[string]any{"error": err.Error(), "movie_id": movieID})
		httpx.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Not in watchlist"})
		return
	}
	if !found {
		httpx.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Not in watchlist"})
		return
	}

	if err := h.store.Remove(r.Context(), entry.ID); err != nil {
		h.logger.Warn("watchlist_remove_failed", map[string]any{"error": err.Error(), "entry_id": entry.ID})
		httpx.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Not in watchlist"})
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Removed from watchlist"})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request, user middleware.Identity) {
	userID, ok := h.resolveUser(w, r, user)
	if !ok {
		return
	}

	var body addRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "invalid json body")
		return
	}

	if message, valid := validateMovieID(body.MovieID); !valid {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, message)
		return
	}

	entry, err := h.store.Add(r.Context(), userID, body.MovieID)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusBadGateway, httpx.ErrUpstream, "failed to add to watchlist")
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, entry)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, user middleware.Identity) {
	userID, ok := h.resolveUser(w, r, user)
	if !ok {
		return
	}

	entries, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusBadGateway, httpx.ErrUpstream, "failed to list watchlist")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, entries)
}

// resolveUser maps the verified identity onto its backing profile record.
// A missing record is a 404, not an auth failure: the token was valid but
// the account has no profile row to hang watchlist data on.
func (h *Handler) resolveUser(w http.ResponseWriter, r *http.Request, user middleware.Identity) (string, bool) {
	userID, err := h.directory.UserIDByEmail(r.Context(), user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteFailure(w, http.StatusNotFound, httpx.ErrNotFound, "user not found")
			return "", false
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to resolve user")
		return "", false
	}

	return userID, true
}

func validateMovieID(movieID string) (string, bool) {
	if strings.TrimSpace(movieID) == "" {
		return "movieId is required", false
	}
	if utf8.RuneCountInString(movieID) > maxMovieIDLength {
		return "movieId must be at most 100 characters", false
	}
	return "", true
}
