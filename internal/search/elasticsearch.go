package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pitchup/internal/config"
	"pitchup/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient представляет клиент для поиска площадок
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// venueDocument is the indexed shape of a venue.
type venueDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Sport        string    `json:"sport"`
	City         string    `json:"city,omitempty"`
	PricePerHour *int64    `json:"price_per_hour,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDocument(v *models.Venue) venueDocument {
	doc := venueDocument{
		ID:           v.ID,
		Sport:        v.Sport,
		PricePerHour: v.PricePerHour,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.Name != nil {
		doc.Name = *v.Name
	}
	if v.City != nil {
		doc.City = *v.City
	}
	return doc
}

func (d venueDocument) toVenue() models.Venue {
	v := models.Venue{
		ID:           d.ID,
		Sport:        d.Sport,
		PricePerHour: d.PricePerHour,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Name != "" {
		name := d.Name
		v.Name = &name
	}
	if d.City != "" {
		city := d.City
		v.City = &city
	}
	return v
}

// NewElasticsearchClient создает новый клиент Elasticsearch
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mappingJSON, err := json.Marshal(venueIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

func venueIndexMapping() map[string]interface{} {
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]interface{}{
				"analyzer": map[string]interface{}{
					"venue_analyzer": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding", "english_stemmer"},
					},
				},
				"filter": map[string]interface{}{
					"english_stemmer": map[string]interface{}{
						"type":     "stemmer",
						"language": "english",
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "keyword"},
				"name": map[string]interface{}{
					"type":     "text",
					"analyzer": "venue_analyzer",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"sport":          map[string]interface{}{"type": "keyword"},
				"city":           map[string]interface{}{"type": "text", "analyzer": "venue_analyzer"},
				"price_per_hour": map[string]interface{}{"type": "long"},
				"updated_at":     map[string]interface{}{"type": "date"},
			},
		},
	}
}

// SearchVenues выполняет полнотекстовый поиск площадок
func (c *ElasticsearchClient) SearchVenues(ctx context.Context, query string, page, pageSize int) ([]models.Venue, error) {
	from := 0
	if page > 0 && pageSize > 0 {
		from = (page - 1) * pageSize
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	searchRequest := map[string]interface{}{
		"query": buildSearchQuery(query),
		"sort":  buildSortQuery(query),
		"from":  from,
		"size":  pageSize,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(searchJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source venueDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	venues := make([]models.Venue, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		venues[i] = hit.Source.toVenue()
	}

	return venues, nil
}

func buildSearchQuery(query string) map[string]interface{} {
	query = strings.TrimSpace(query)
	if query == "" {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	return map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"name^3", "sport^2", "city"},
			"fuzziness": "AUTO",
		},
	}
}

func buildSortQuery(query string) []map[string]interface{} {
	if strings.TrimSpace(query) != "" {
		return []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"name.keyword": map[string]interface{}{"order": "asc"}},
		}
	}

	return []map[string]interface{}{
		{"name.keyword": map[string]interface{}{"order": "asc"}},
	}
}

// IndexVenue индексирует площадку
func (c *ElasticsearchClient) IndexVenue(ctx context.Context, venue *models.Venue) error {
	doc := toDocument(venue)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	venueJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal venue: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: venue.ID,
		Body:       bytes.NewReader(venueJSON),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index venue: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// HealthCheck проверяет состояние Elasticsearch
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
