// Package catalog serves the browsable movie catalogue from the document
// database. Read-only: titles are managed out of band.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"

	"screenhub/internal/docstore"
	"screenhub/internal/httpx"
)

const (
	collection      = "movies"
	defaultPageSize = 20
	maxPageSize     = 100
)

type Movie struct {
	ID        string  `json:"$id"`
	Title     string  `json:"title"`
	Overview  string  `json:"overview"`
	Category  string  `json:"category"`
	Year      int     `json:"year"`
	Rating    float64 `json:"rating"`
	PosterURL string  `json:"poster_url"`
}

type Filter struct {
	Category string
	Search   string
	Limit    int
}

type Store struct {
	docs *docstore.Client
}

func NewStore(docs *docstore.Client) *Store {
	return &Store{docs: docs}
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Movie, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	queries := []docstore.Query{docstore.Limit(limit)}
	if filter.Category != "" {
		queries = append(queries, docstore.Equal("category", filter.Category))
	}
	if filter.Search != "" {
		queries = append(queries, docstore.Search("title", filter.Search))
	}

	docs, err := s.docs.ListDocuments(ctx, collection, queries)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	movies := make([]Movie, 0, len(docs))
	for _, doc := range docs {
		var movie Movie
		if err := json.Unmarshal(doc, &movie); err != nil {
			return nil, fmt.Errorf("decode movie: %w", err)
		}
		movies = append(movies, movie)
	}

	return movies, nil
}

func (s *Store) Get(ctx context.Context, movieID string) (Movie, error) {
	doc, err := s.docs.GetDocument(ctx, collection, movieID)
	if err != nil {
		return Movie{}, err
	}

	var movie Movie
	if err := json.Unmarshal(doc, &movie); err != nil {
		return Movie{}, fmt.Errorf("decode movie: %w", err)
	}

	return movie, nil
}

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPageSize {
			httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "limit must be between 1 and 100")
			return
		}
		filter.Limit = parsed
	}

	movies, err := h.store.List(r.Context(), filter)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusBadGateway, httpx.ErrUpstream, "failed to list movies")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, movies)
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movieID := strings.TrimSpace(r.PathValue("id"))
	if movieID == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "movie id is required")
		return
	}

	movie, err := h.store.Get(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			httpx.WriteFailure(w, http.StatusNotFound, httpx.ErrNotFound, "movie not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusBadGateway, httpx.ErrUpstream, "failed to fetch movie")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, movie)
}
