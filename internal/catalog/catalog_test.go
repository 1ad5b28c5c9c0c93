package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenhub/internal/docstore"
)

func newTestHandler(t *testing.T, docHandler http.HandlerFunc) *Handler {
	t.Helper()
	server := httptest.NewServer(docHandler)
	t.Cleanup(server.Close)

	docs, err := docstore.New(server.URL, "p1", "secret")
	require.NoError(t, err)
	return NewHandler(NewStore(docs))
}

func TestListMoviesBuildsFilterQueries(t *testing.T) {
	var gotQueries []string
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotQueries = r.URL.Query()["queries[]"]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"documents": []map[string]any{
				{"$id": "m1", "title": "Heat", "category": "thriller", "year": 1995, "rating": 8.3},
			},
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/movies?category=thriller&search=heat&limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ListMovies(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{
		`limit(5)`,
		`equal("category", ["thriller"])`,
		`search("title", ["heat"])`,
	}, gotQueries)

	var body struct {
		Success bool    `json:"success"`
		Data    []Movie `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Heat", body.Data[0].Title)
	assert.Equal(t, 1995, body.Data[0].Year)
}

func TestListMoviesRejectsBadLimit(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("docstore must not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/movies?limit=500", nil)
	rec := httptest.NewRecorder()
	handler.ListMovies(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMovieNotFound(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/movies/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	handler.GetMovie(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NotFoundError", body["error"])
}
