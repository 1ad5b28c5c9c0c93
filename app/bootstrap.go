package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"screenhub/internal/auth"
	"screenhub/internal/catalog"
	"screenhub/internal/contact"
	"screenhub/internal/db"
	"screenhub/internal/docstore"
	"screenhub/internal/maintenance"
	"screenhub/internal/middleware"
	"screenhub/internal/observability"
	"screenhub/internal/profile"
	"screenhub/internal/watchlist"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	docstoreEndpoint, err := mustEnv("DOCSTORE_ENDPOINT")
	if err != nil {
		return nil, err
	}
	docstoreProject, err := mustEnv("DOCSTORE_PROJECT_ID")
	if err != nil {
		return nil, err
	}
	docstoreKey, err := mustEnv("DOCSTORE_API_KEY")
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(
		os.Getenv("SENTRY_DSN"),
		envOrDefault("APP_ENV", "development"),
		os.Getenv("APP_RELEASE"),
	); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(context.Background(), database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	docs, err := docstore.New(docstoreEndpoint, docstoreProject, docstoreKey)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init docstore: %w", err)
	}

	profileRepo := profile.NewRepository(database)
	profileHandler := profile.NewHandler(profileRepo)

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, jwtSecret)
	authService.WithTTLs(
		envHoursOrDefault("ACCESS_TOKEN_TTL_HOURS", 72),
		envHoursOrDefault("SESSION_TTL_HOURS", 720),
	)
	authService.WithDirectory(profileRepo)
	authHandler := auth.NewHandler(authService)

	cleanupHandler := maintenance.NewCleanupHandler(
		authRepo,
		logger,
		os.Getenv("CRON_SECRET"),
		envDaysOrDefault("SESSION_RETENTION_DAYS", 14),
		envIntOrDefault("CLEANUP_BATCH_SIZE", 500),
	)

	catalogHandler := catalog.NewHandler(catalog.NewStore(docs))
	watchlistHandler := watchlist.NewHandler(watchlist.NewStore(docs), profileRepo, logger)
	contactHandler := contact.NewHandler(contact.NewRepository(database))

	corsPolicy := middleware.NewCORSPolicy(splitOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")))
	pipeline := middleware.NewPipeline(
		middleware.NewRateLimitStage(
			envIntOrDefault("RATE_LIMIT_MAX", 60),
			envSecondsOrDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
			corsPolicy,
		),
		middleware.NewCORSStage(corsPolicy),
		middleware.MethodStage{},
		middleware.NewAuthStage(authService),
	)

	// Pipeline routes register on method-less patterns: the mux must route
	// every verb (OPTIONS included) into the stages, where CORS answers
	// preflights and the method gate rejects wrong verbs in the envelope.
	mux := http.NewServeMux()

	mux.Handle("/auth/signup", pipeline.Public([]string{http.MethodPost}, authHandler.Signup))
	mux.Handle("/auth/signin", pipeline.Public([]string{http.MethodPost}, authHandler.Signin))
	mux.Handle("/auth/refresh", pipeline.Public([]string{http.MethodPost}, authHandler.Refresh))
	mux.Handle("/auth/signout", pipeline.Public([]string{http.MethodPost}, authHandler.Signout))
	mux.Handle("/auth/me", pipeline.Handler([]string{http.MethodGet}, authHandler.Me))

	mux.Handle("/movies", pipeline.Public([]string{http.MethodGet}, catalogHandler.ListMovies))
	mux.Handle("/movies/{id}", pipeline.Public([]string{http.MethodGet}, catalogHandler.GetMovie))

	mux.Handle("/api/watchlist", pipeline.Route(map[string]middleware.Dispatch{
		http.MethodGet:  {Authed: watchlistHandler.List},
		http.MethodPost: {Authed: watchlistHandler.Add},
	}))
	mux.Handle("/api/watchlist/{movieId}", pipeline.Handler([]string{http.MethodDelete}, watchlistHandler.Remove))

	mux.Handle("/api/profile", pipeline.Route(map[string]middleware.Dispatch{
		http.MethodGet: {Authed: profileHandler.Get},
		http.MethodPut: {Authed: profileHandler.Update},
	}))

	mux.Handle("/contact", pipeline.Route(map[string]middleware.Dispatch{
		http.MethodPost: {Public: contactHandler.Create},
		http.MethodGet:  {Authed: contactHandler.List},
	}))

	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
