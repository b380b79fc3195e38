package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *ESClientWrapper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &ESClientWrapper{Client: c}
}

func TestCreateIndexIfNotExists_Creates(t *testing.T) {
	var created bool
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	err := CreateIndexIfNotExists(context.Background(), client, "workouts", Mapping{"mappings": map[string]interface{}{}}, zap.NewNop())

	require.NoError(t, err)
	assert.True(t, created)
}

func TestCreateIndexIfNotExists_Exists(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, CreateIndexIfNotExists(context.Background(), client, "workouts", Mapping{}, zap.NewNop()))
}

func TestCreateIndexIfNotExists_CreateFails(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception","reason":"exists"}}`))
	})

	err := CreateIndexIfNotExists(context.Background(), client, "workouts", Mapping{}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource_already_exists_exception")
}
