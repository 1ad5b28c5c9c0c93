package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"screenhub/internal/middleware"
)

const (
	// Bearer tokens live three days; the refresh scheduler renews them well
	// before that, twelve hours out by default.
	defaultAccessTTL  = 72 * time.Hour
	defaultSessionTTL = 30 * 24 * time.Hour
)

// Directory creates the relational backing record for a new account.
// Implemented by the profile repository.
type Directory interface {
	CreateProfile(ctx context.Context, userID, email, displayName string) error
}

type Service struct {
	repo       *Repository
	directory  Directory
	jwtSecret  []byte
	accessTTL  time.Duration
	sessionTTL time.Duration
}

func NewService(repo *Repository, jwtSecret string) *Service {
	return &Service{
		repo:       repo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  defaultAccessTTL,
		sessionTTL: defaultSessionTTL,
	}
}

func (s *Service) WithTTLs(accessTTL, sessionTTL time.Duration) {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if sessionTTL > 0 {
		s.sessionTTL = sessionTTL
	}
}

func (s *Service) WithDirectory(directory Directory) {
	s.directory = directory
}

func (s *Service) SignUp(ctx context.Context, name, email, password string) (Credentials, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, name, email, string(hash))
	if err != nil {
		return Credentials{}, err
	}

	if s.directory != nil {
		if err := s.directory.CreateProfile(ctx, user.ID, user.Email, user.Name); err != nil {
			return Credentials{}, fmt.Errorf("create profile record: %w", err)
		}
	}

	return s.issueCredentials(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return Credentials{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credentials{}, ErrInvalidCredentials
		}
		return Credentials{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Credentials{}, ErrInvalidCredentials
	}

	return s.issueCredentials(ctx, user)
}

// RefreshToken exchanges a still-valid session for a fresh bearer token.
// The session itself is the trusted credential here; no password replay and
// no session rotation.
func (s *Service) RefreshToken(ctx context.Context, sessionToken string) (string, int64, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return "", 0, ErrInvalidSessionToken
	}

	userID, err := s.repo.SessionUserID(ctx, sessionToken, time.Now().UTC())
	if err != nil {
		return "", 0, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrInvalidSessionToken
		}
		return "", 0, err
	}

	return s.issueAccessToken(user.ID, user.Email)
}

func (s *Service) SignOut(ctx context.Context, sessionToken string) error {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return ErrInvalidSessionToken
	}
	return s.repo.RevokeSession(ctx, sessionToken)
}

// VerifyToken implements middleware.Verifier.
func (s *Service) VerifyToken(_ context.Context, tokenString string) (middleware.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return middleware.Identity{}, ErrInvalidAccessToken
	}

	if tokenType, _ := claims["typ"].(string); tokenType != "access" {
		return middleware.Identity{}, ErrInvalidAccessToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return middleware.Identity{}, ErrInvalidAccessToken
	}
	email, _ := claims["email"].(string)

	return middleware.Identity{UserID: subject, Email: email}, nil
}

func (s *Service) issueCredentials(ctx context.Context, user User) (Credentials, error) {
	access, expiresIn, err := s.issueAccessToken(user.ID, user.Email)
	if err != nil {
		return Credentials{}, err
	}

	sessionToken, err := randomToken(48)
	if err != nil {
		return Credentials{}, fmt.Errorf("generate session token: %w", err)
	}
	if err := s.repo.CreateSession(ctx, user.ID, sessionToken, time.Now().UTC().Add(s.sessionTTL)); err != nil {
		return Credentials{}, err
	}

	return Credentials{
		Token:        access,
		SessionToken: sessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		User:         user,
	}, nil
}

func (s *Service) issueAccessToken(userID, email string) (string, int64, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
		"typ":   "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("sign jwt: %w", err)
	}

	return encoded, int64(s.accessTTL.Seconds()), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAccessToken = errors.New("invalid access token")
)
