package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pitchup/internal/config"
	"pitchup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	created     bool
	indexed     map[string]map[string]interface{}
	lastSearch  map[string]interface{}
	hits        string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/venues":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/venues":
		f.created = true
		f.indexExists = true
		io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasPrefix(r.URL.Path, "/venues/_doc/"):
		var doc map[string]interface{}
		json.NewDecoder(r.Body).Decode(&doc)
		f.indexed[strings.TrimPrefix(r.URL.Path, "/venues/_doc/")] = doc
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case r.URL.Path == "/venues/_search":
		json.NewDecoder(r.Body).Decode(&f.lastSearch)
		io.WriteString(w, f.hits)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{}`)
	}
}

func newTestClient(t *testing.T, cluster *fakeCluster) *ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := NewElasticsearchClient(config.ElasticsearchConfig{
		URL:     srv.URL,
		Index:   "venues",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewElasticsearchClient_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{indexed: map[string]map[string]interface{}{}}
	newTestClient(t, cluster)
	assert.True(t, cluster.created)

	existing := &fakeCluster{indexExists: true, indexed: map[string]map[string]interface{}{}}
	newTestClient(t, existing)
	assert.False(t, existing.created)
}

func TestIndexVenue(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, indexed: map[string]map[string]interface{}{}}
	client := newTestClient(t, cluster)

	name := "Riverside 5s"
	price := int64(4500)
	err := client.IndexVenue(context.Background(), &models.Venue{ID: "v1", Name: &name, Sport: "football", PricePerHour: &price})
	require.NoError(t, err)

	doc, ok := cluster.indexed["v1"]
	require.True(t, ok)
	assert.Equal(t, "Riverside 5s", doc["name"])
	assert.Equal(t, float64(4500), doc["price_per_hour"])
	assert.NotContains(t, doc, "city")
}

func TestSearchVenues(t *testing.T) {
	cluster := &fakeCluster{
		indexExists: true,
		indexed:     map[string]map[string]interface{}{},
		hits: `{"hits":{"hits":[
			{"_source":{"id":"v1","name":"Riverside 5s","sport":"football","price_per_hour":4500}},
			{"_source":{"id":"v2","name":"","sport":"padel","city":"Leeds"}}
		]}}`,
	}
	client := newTestClient(t, cluster)

	venues, err := client.SearchVenues(context.Background(), "riverside", 2, 10)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "Riverside 5s", *venues[0].Name)
	assert.Equal(t, int64(4500), *venues[0].PricePerHour)
	assert.Nil(t, venues[1].Name)
	assert.Equal(t, "Leeds", *venues[1].City)

	assert.Equal(t, float64(10), cluster.lastSearch["from"])
	assert.Equal(t, float64(10), cluster.lastSearch["size"])
	query := cluster.lastSearch["query"].(map[string]interface{})
	assert.Contains(t, query, "multi_match")
}

func TestBuildSearchQuery(t *testing.T) {
	assert.Contains(t, buildSearchQuery("  "), "match_all")

	q := buildSearchQuery("padel leeds")
	mm := q["multi_match"].(map[string]interface{})
	assert.Equal(t, "padel leeds", mm["query"])
	assert.Equal(t, []string{"name^3", "sport^2", "city"}, mm["fields"])

	assert.Len(t, buildSortQuery("padel"), 2)
	assert.Len(t, buildSortQuery(""), 1)
}
