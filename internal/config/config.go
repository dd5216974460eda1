package config

import (
	"fmt"
	"time"

	"pitchup/internal/cache"
	"pitchup/internal/database"
	"pitchup/internal/external"
	"pitchup/internal/messaging"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string        `envconfig:"PORT" default:"8081"`
	GinMode        string        `envconfig:"GIN_MODE" default:"debug"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	AppURL         string        `envconfig:"APP_URL" default:"http://localhost:3000"`
	CronSecret     string        `envconfig:"CRON_SECRET"`

	Database      database.Config        `envconfig:"DB"`
	NATS          messaging.Config       `envconfig:"NATS"`
	Cache         cache.Config           `envconfig:"VALKEY"`
	Elasticsearch ElasticsearchConfig    `envconfig:"ELASTICSEARCH"`
	Payment       external.PaymentConfig `envconfig:"STRIPE"`
	Email         external.EmailConfig   `envconfig:"RESEND"`
	Booking       BookingConfig          `envconfig:"BOOKING"`
	Jobs          JobsConfig             `envconfig:"JOBS"`
}

// BookingConfig holds the reservation policy knobs.
type BookingConfig struct {
	LockDuration       time.Duration `envconfig:"LOCK_DURATION" default:"10m"`
	SessionExpiry      time.Duration `envconfig:"SESSION_EXPIRY" default:"30m"`
	CancellationCutoff time.Duration `envconfig:"CANCELLATION_CUTOFF" default:"0s"`
}

// JobsConfig configures the periodic jobs of the consumers process.
type JobsConfig struct {
	ReclaimInterval time.Duration `envconfig:"RECLAIM_INTERVAL" default:"2m"`
	SeedInterval    time.Duration `envconfig:"SEED_INTERVAL" default:"6h"`
	SeedDays        int           `envconfig:"SEED_DAYS" default:"14"`
	SeedTimes       []string      `envconfig:"SEED_TIMES" default:"17:00,18:00,19:00,20:00,21:00"`
}

// Load загружает конфигурацию из переменных окружения.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Payment.SuccessURL == "" {
		cfg.Payment.SuccessURL = cfg.AppURL + "/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Payment.CancelURL == "" {
		cfg.Payment.CancelURL = cfg.AppURL + "/"
	}
	cfg.Email.AppURL = cfg.AppURL

	return &cfg, nil
}

func (c *Config) validate() error {
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"BOOKING_LOCK_DURATION", c.Booking.LockDuration},
		{"JOBS_RECLAIM_INTERVAL", c.Jobs.ReclaimInterval},
		{"JOBS_SEED_INTERVAL", c.Jobs.SeedInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", p.name, p.value)
		}
	}
	return nil
}

// MustLoad is Load for process entry points.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
