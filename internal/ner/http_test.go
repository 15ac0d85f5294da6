package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRecognizerEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/entities", r.URL.Path)

		var req entitiesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Meet at Blue Finch Café", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entitiesResponse{
			Entities: []Entity{
				{Tag: TagFAC, Start: 8, End: 24, Text: "Blue Finch Café"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	rec := NewHTTPRecognizer(srv.URL)
	ents, err := rec.Entities(context.Background(), "Meet at Blue Finch Café")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, TagFAC, ents[0].Tag)
}

func TestHTTPRecognizerNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	rec := NewHTTPRecognizer(srv.URL)
	_, err := rec.Entities(context.Background(), "some text")
	assert.Error(t, err)
}

func TestNewHTTPRecognizerDefaultURL(t *testing.T) {
	rec := NewHTTPRecognizer("")
	assert.Equal(t, "http://localhost:8321", rec.baseURL)
}
