package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/domain"
)

func TestPointIDIsStableUUID(t *testing.T) {
	id := PointID("doc:0")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, PointID("doc:0"))
	assert.NotEqual(t, id, PointID("doc:1"))
}

func TestStorageRoundTrip(t *testing.T) {
	var upserted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/quotes":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/quotes/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upserted = body.Points
		case r.Method == http.MethodPost && r.URL.Path == "/collections/quotes/points/search":
			_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"document_id":"d","chunk_id":"d:0","source":"quotes.txt","index":0,"text":"All that glitters is not gold."}}]}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "quotes"})

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{DocumentID: "d", ChunkID: "d:0", Text: "x"}}, [][]float64{{1, 0}}))
	require.Len(t, upserted, 1)
	assert.Equal(t, PointID("d:0"), upserted[0]["id"])

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "All that glitters is not gold.", res[0].Chunk.Text)
	assert.Equal(t, "quotes.txt", res[0].Chunk.Source)
	assert.InDelta(t, 0.9, res[0].Score, 1e-9)
}

func TestStorageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewStorage(Config{URL: srv.URL, Collection: "quotes"}).Init(context.Background(), 4)
	assert.ErrorContains(t, err, "400")
}
