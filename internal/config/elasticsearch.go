package config

import "time"

// ElasticsearchConfig содержит конфигурацию для подключения к Elasticsearch.
// An empty URL disables the venue search index.
type ElasticsearchConfig struct {
	URL        string        `envconfig:"URL"`
	Index      string        `envconfig:"INDEX" default:"venues"`
	Username   string        `envconfig:"USERNAME"`
	Password   string        `envconfig:"PASSWORD"`
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"3"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// Enabled reports whether a cluster address was configured.
func (c ElasticsearchConfig) Enabled() bool {
	return c.URL != ""
}
