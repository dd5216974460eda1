package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

type Config struct {
	Host               string `envconfig:"HOST" default:"localhost"`
	Port               int    `envconfig:"PORT" default:"5432"`
	User               string `envconfig:"USER" default:"pitchup"`
	Password           string `envconfig:"PASSWORD" default:"pitchup123"`
	DBName             string `envconfig:"NAME" default:"pitchup"`
	SSLMode            string `envconfig:"SSLMODE" default:"disable"`
	MaxOpenConns       int    `envconfig:"MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns       int    `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetimeMin int    `envconfig:"CONN_MAX_LIFETIME_MIN" default:"5"`
	ConnMaxIdleTimeMin int    `envconfig:"CONN_MAX_IDLE_TIME_MIN" default:"1"`
}

func (cfg Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

func Connect(cfg Config) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMin) * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to database",
		"host", cfg.Host, "port", cfg.Port, "dbname", cfg.DBName,
		"max_open_conns", cfg.MaxOpenConns, "max_idle_conns", cfg.MaxIdleConns)

	return &DB{db}, nil
}

// Wrap adopts an already opened handle (tests, tools).
func Wrap(db *sql.DB) *DB {
	return &DB{db}
}

func (db *DB) Close() error {
	return db.DB.Close()
}
