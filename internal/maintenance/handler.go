package maintenance

import (
	"net/http"
	"strings"
	"time"

	"screenhub/internal/auth"
	"screenhub/internal/httpx"
	"screenhub/internal/observability"
)

// CleanupHandler prunes expired and revoked sessions. It is invoked by the
// platform cron, authenticated with a shared secret rather than a user
// token; with no secret configured the route plays dead.
type CleanupHandler struct {
	repo             *auth.Repository
	logger           *observability.Logger
	cronSecret       string
	sessionRetention time.Duration
	batchSize        int
}

func NewCleanupHandler(repo *auth.Repository, logger *observability.Logger, cronSecret string, sessionRetention time.Duration, batchSize int) *CleanupHandler {
	return &CleanupHandler{
		repo:             repo,
		logger:           logger,
		cronSecret:       strings.TrimSpace(cronSecret),
		sessionRetention: sessionRetention,
		batchSize:        batchSize,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		httpx.WriteFailure(w, http.StatusNotFound, httpx.ErrNotFound, "not found")
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "unauthorized")
		return
	}

	deleted, err := h.repo.CleanupStaleSessions(r.Context(), h.sessionRetention, h.batchSize)
	if err != nil {
		h.logger.Error("session_cleanup_failed", map[string]any{"error": err.Error()})
		httpx.WriteFailure(w, http.StatusInternalServerError, httpx.ErrUpstream, "cleanup failed")
		return
	}

	h.logger.Info("session_cleanup_completed", map[string]any{"deleted_sessions": deleted})
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"deleted_sessions": deleted})
}
