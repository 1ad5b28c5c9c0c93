package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"screenhub/internal/docstore"
)

const collection = "watchlist"

type Entry struct {
	ID      string    `json:"$id"`
	UserID  string    `json:"user_id"`
	MovieID string    `json:"movie_id"`
	AddedAt time.Time `json:"added_at"`
}

// Store keeps watchlist entries in the document database, one document per
// (user, movie) pair.
type Store struct {
	docs *docstore.Client
}

func NewStore(docs *docstore.Client) *Store {
	return &Store{docs: docs}
}

// Find returns the entry for (userID, movieID) with an explicit found flag.
func (s *Store) Find(ctx context.Context, userID, movieID string) (Entry, bool, error) {
	docs, err := s.docs.ListDocuments(ctx, collection, []docstore.Query{
		docstore.Equal("user_id", userID),
		docstore.Equal("movie_id", movieID),
		docstore.Limit(1),
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("find watchlist entry: %w", err)
	}
	if len(docs) == 0 {
		return Entry{}, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(docs[0], &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode watchlist entry: %w", err)
	}

	return entry, true, nil
}

// Add creates the entry unless the movie is already listed, in which case
// the existing entry is returned.
func (s *Store) Add(ctx context.Context, userID, movieID string) (Entry, error) {
	existing, found, err := s.Find(ctx, userID, movieID)
	if err != nil {
		return Entry{}, err
	}
	if found {
		return existing, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("generate entry id: %w", err)
	}

	entry := Entry{
		ID:      id.String(),
		UserID:  userID,
		MovieID: movieID,
		AddedAt: time.Now().UTC(),
	}

	raw, err := s.docs.CreateDocument(ctx, collection, entry.ID, map[string]any{
		"user_id":  entry.UserID,
		"movie_id": entry.MovieID,
		"added_at": entry.AddedAt.Format(time.RFC3339),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("create watchlist entry: %w", err)
	}
	_ = json.Unmarshal(raw, &entry)

	return entry, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	docs, err := s.docs.ListDocuments(ctx, collection, []docstore.Query{
		docstore.Equal("user_id", userID),
		docstore.Limit(100),
	})
	if err != nil {
		return nil, fmt.Errorf("list watchlist entries: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var entry Entry
		if err := json.Unmarshal(doc, &entry); err != nil {
			return nil, fmt.Errorf("decode watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *Store) Remove(ctx context.Context, entryID string) error {
	if err := s.docs.DeleteDocument(ctx, collection, entryID); err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	return nil
}
