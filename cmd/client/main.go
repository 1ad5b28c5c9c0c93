// Command client is the keep-alive companion for a signed-in account. It
// stores credentials on disk and, in watch mode, renews the bearer token
// before it expires so the session never lapses while the process runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"screenhub/internal/client"
	"screenhub/internal/observability"
	"screenhub/internal/session"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := observability.NewLogger()

	store, err := session.NewFileStore(tokenFilePath())
	if err != nil {
		logger.Error("open_token_store_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	api, err := client.New(serverURL(), store)
	if err != nil {
		logger.Error("init_client_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "signin":
		err = runSignin(ctx, api, os.Args[2:])
	case "signout":
		err = api.SignOut(ctx)
	case "me":
		err = runMe(ctx, api)
	case "watch":
		err = runWatch(store, api, logger)
	case "watchlist-remove":
		err = runWatchlistRemove(ctx, api, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command_failed", map[string]any{"command": os.Args[1], "error": err.Error()})
		os.Exit(1)
	}
}

func runSignin(ctx context.Context, api *client.Client, args []string) error {
	flags := flag.NewFlagSet("signin", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	_ = flags.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("signin requires -email and -password")
	}

	if err := api.SignIn(ctx, *email, *password); err != nil {
		return err
	}

	fmt.Println("signed in")
	return nil
}

func runMe(ctx context.Context, api *client.Client) error {
	me, err := api.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("user: %s (%s)\n", me["email"], me["user_id"])
	return nil
}

func runWatch(store session.Store, api *client.Client, logger *observability.Logger) error {
	if _, ok := store.Token(); !ok {
		return fmt.Errorf("no stored token, sign in first")
	}

	scheduler := session.NewScheduler(store, session.NewRefresher(store, api), session.SchedulerOptions{
		CheckInterval:    envMinutes("REFRESH_CHECK_INTERVAL_MINUTES", 5),
		RefreshThreshold: envHours("REFRESH_WARNING_THRESHOLD_HOURS", 12),
		Logger:           logger,
	})

	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("watch_started", map[string]any{"token_file": tokenFilePath()})

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	logger.Info("watch_stopped", nil)
	return nil
}

func runWatchlistRemove(ctx context.Context, api *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("watchlist-remove requires exactly one movie id")
	}

	message, err := api.RemoveFromWatchlist(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(message)
	return nil
}

func serverURL() string {
	if value := strings.TrimSpace(os.Getenv("SCREENHUB_SERVER")); value != "" {
		return value
	}
	return "http://localhost:8080"
}

func tokenFilePath() string {
	if value := strings.TrimSpace(os.Getenv("SCREENHUB_TOKEN_FILE")); value != "" {
		return value
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "screenhub-session.json"
	}
	return filepath.Join(home, ".screenhub", "session.json")
}

func envMinutes(name string, fallback int) time.Duration {
	return time.Duration(envInt(name, fallback)) * time.Minute
}

func envHours(name string, fallback int) time.Duration {
	return time.Duration(envInt(name, fallback)) * time.Hour
}

func envInt(name string, fallback int) int {
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

func usage() {
	fmt.Fprintln(os.Stderr, `usage: client <command> [flags]

commands:
  signin -email <email> -password <password>
  watch
  me
  watchlist-remove <movieId>
  signout`)
}
