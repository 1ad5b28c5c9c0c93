// Package contact stores messages submitted through the marketing site's
// contact form.
package contact

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"screenhub/internal/httpx"
	"screenhub/internal/middleware"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name, email, message string) (Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}

	m := Message{
		ID:        id.String(),
		Name:      name,
		Email:     email,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contact_messages (id, name, email, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.Name, m.Email, m.Message, m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert contact message: %w", err)
	}

	return m, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, message, created_at
		FROM contact_messages
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query contact messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact messages: %w", err)
	}

	return messages, nil
}

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type createRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, "invalid json body")
		return
	}

	if message, ok := validate(body); !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, httpx.ErrValidation, message)
		return
	}

	created, err := h.repo.Create(r.Context(), strings.TrimSpace(body.Name), normalizeEmail(body.Email), strings.TrimSpace(body.Message))
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to save message")
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ middleware.Identity) {
	messages, err := h.repo.List(r.Context(), 0)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "failed to list messages")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, messages)
}

func validate(body createRequest) (string, bool) {
	name := strings.TrimSpace(body.Name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return "name must be between 1 and 100 characters", false
	}
	if !emailRegex.MatchString(normalizeEmail(body.Email)) {
		return "email format is invalid", false
	}
	message := strings.TrimSpace(body.Message)
	if utf8.RuneCountInString(message) < 10 || utf8.RuneCountInString(message) > 2000 {
		return "message must be between 10 and 2000 characters", false
	}
	return "", true
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
