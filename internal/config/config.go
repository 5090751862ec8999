// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by every fleetdb command.
type Config struct {
	MongoURI     string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string        `env:"MONGO_DB" envDefault:"fleetdb"`
	MongoTimeout time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`

	VehiclesCollection string `env:"VEHICLES_COLLECTION" envDefault:"vehicles"`
	UsersCollection    string `env:"USERS_COLLECTION" envDefault:"users"`
	HistoryCollection  string `env:"HISTORY_COLLECTION" envDefault:"telemetry_history"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Report caching is disabled when RedisURL is empty.
	RedisURL       string        `env:"REDIS_URL"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"5m"`

	MQTTBroker   string `env:"MQTT_BROKER" envDefault:"tcp://localhost:1883"`
	MQTTClientID string `env:"MQTT_CLIENT_ID" envDefault:"fleetdb-ingest"`
	MQTTTopic    string `env:"MQTT_TOPIC" envDefault:"fleet/+/telemetry"`
}

// Load reads the given env files (missing files are skipped) and parses the
// environment into a Config. Variables already set in the environment win
// over values from the files.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MongoDB == "" {
		return nil, errors.New("MONGO_DB must not be empty")
	}
	return &cfg, nil
}
