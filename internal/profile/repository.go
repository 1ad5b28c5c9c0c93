package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Profile struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	FavouriteGenre string    `json:"favourite_genre"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateProfile provisions the backing record at signup. Implements
// auth.Directory.
func (r *Repository) CreateProfile(ctx context.Context, userID, email, displayName string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, display_name, favourite_genre, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, displayName, now)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// UserIDByEmail resolves the backing record for an authenticated identity.
// Implements watchlist.UserDirectory; absence surfaces as sql.ErrNoRows.
func (r *Repository) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM profiles
		WHERE email = $1
	`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("query profile by email: %w", err)
	}

	return userID, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, email, display_name, favourite_genre, created_at, updated_at
		FROM profiles
		WHERE email = $1
	`, email).Scan(&p.UserID, &p.Email, &p.DisplayName, &p.FavouriteGenre, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}

	return p, nil
}

func (r *Repository) Update(ctx context.Context, email string, displayName, favouriteGenre string) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET display_name = $2, favourite_genre = $3, updated_at = $4
		WHERE email = $1
		RETURNING user_id, email, display_name, favourite_genre, created_at, updated_at
	`, email, displayName, favouriteGenre, time.Now().UTC()).
		Scan(&p.UserID, &p.Email, &p.DisplayName, &p.FavouriteGenre, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return p, nil
}
