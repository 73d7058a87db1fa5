package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

func TestQueryMissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Query(context.Background(), "sop_chunks", []float32{0.1}, 5)

	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestQueryFlattensNestedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/v1/collections/sop_chunks":
			json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "sop_chunks"})
		case r.Method == "POST" && r.URL.Path == "/api/v1/collections/col-1/query":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.EqualValues(t, 5, payload["n_results"])

			json.NewEncoder(w).Encode(map[string]any{
				"ids":       [][]string{{"a", "b"}},
				"documents": [][]string{{"doc a", "doc b"}},
				"distances": [][]float64{{0.1, 0.4}},
				"metadatas": [][]map[string]any{{
					{"title": "A", "source_file": "a.xlsx"},
					{"title": "B", "source_file": "b.xlsx"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Query(context.Background(), "sop_chunks", []float32{0.1}, 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.IDs)
	assert.Equal(t, []string{"doc a", "doc b"}, result.Documents)
	assert.Equal(t, []float64{0.1, 0.4}, result.Distances)
	require.Len(t, result.Metadatas, 2)
	assert.Equal(t, "A", result.Metadatas[0].Title)
	assert.Equal(t, "b.xlsx", result.Metadatas[1].SourceFile)
}

func TestDeleteCollectionToleratesMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.NoError(t, c.DeleteCollection(context.Background(), "sop_chunks"))
}

func TestAddResolvesCollectionID(t *testing.T) {
	var addPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/v1/collections/sop_chunks":
			json.NewEncoder(w).Encode(map[string]string{"id": "col-9", "name": "sop_chunks"})
		case r.Method == "POST":
			addPath = r.URL.Path
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Len(t, payload["ids"], 1)
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Add(context.Background(), "sop_chunks",
		[]string{"id-1"},
		[][]float32{{0.1, 0.2}},
		[]string{"doc"},
		[]models.ChunkMetadata{{Title: "A"}})

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/collections/col-9/add", addPath)
}

func TestEnsureCollectionPostsGetOrCreate(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/v1/collections", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.EnsureCollection(context.Background(), "sop_chunks"))
	assert.Equal(t, "sop_chunks", created["name"])
	assert.Equal(t, true, created["get_or_create"])
}
