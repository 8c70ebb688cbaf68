package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
)

// Config holds application configuration
type Config struct {
	HTTPAddr        string
	RepoType        string // "memory" | "sqlite"
	DBPath          string // SQLite database file path (used when RepoType=sqlite)
	SwitchType      string // "mock" | "grpc" | "mqtt"
	SwitchAddr      string // switch daemon address (used when SwitchType=grpc)
	SwitchTimeout   time.Duration
	MQTTBroker      string
	MQTTTopicPrefix string
	ResyncInterval  time.Duration // 0 disables the resync worker
	SeedLamps       []seedLamp
	TLSCert         string // path to this service's certificate
	TLSKey          string // path to this service's private key
	TLSCA           string // path to the CA certificate
	LogLevel        zerolog.Level
}

// seedLamp is a lamp created at startup if no lamp has its name
type seedLamp struct {
	Name       string
	Brightness int
}

// loadConfig reads configuration from environment variables
func loadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		RepoType:        getenv("REPO_TYPE", "memory"),
		DBPath:          getenv("DB_PATH", "./lamps.db"),
		SwitchType:      getenv("SWITCH_TYPE", "mock"),
		SwitchAddr:      getenv("SWITCH_ADDR", "localhost:50052"),
		SwitchTimeout:   ports.DefaultSwitchTimeout,
		MQTTBroker:      getenv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopicPrefix: getenv("MQTT_TOPIC_PREFIX", "lamps"),
		TLSCert:         os.Getenv("TLS_CERT"),
		TLSKey:          os.Getenv("TLS_KEY"),
		TLSCA:           os.Getenv("TLS_CA"),
		LogLevel:        zerolog.InfoLevel,
	}

	if s := os.Getenv("SWITCH_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid SWITCH_TIMEOUT %q", s)
		}
		cfg.SwitchTimeout = d
	}

	if s := os.Getenv("RESYNC_INTERVAL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid RESYNC_INTERVAL %q", s)
		}
		cfg.ResyncInterval = d
	}

	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level, err := zerolog.ParseLevel(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	seeds, err := parseSeedLamps(os.Getenv("SEED_LAMPS"))
	if err != nil {
		return Config{}, err
	}
	cfg.SeedLamps = seeds

	return cfg, nil
}

// parseSeedLamps parses "name:brightness,name,...".
// A missing brightness means domain.DefaultBrightness.
func parseSeedLamps(s string) ([]seedLamp, error) {
	var seeds []seedLamp
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		seed := seedLamp{Name: item, Brightness: domain.DefaultBrightness}
		if i := strings.LastIndex(item, ":"); i >= 0 {
			n, err := strconv.Atoi(strings.TrimSpace(item[i+1:]))
			if err != nil {
				return nil, fmt.Errorf("invalid SEED_LAMPS entry %q: brightness is not a number", item)
			}
			seed.Name = strings.TrimSpace(item[:i])
			seed.Brightness = n
		}

		if seed.Name == "" {
			return nil, fmt.Errorf("invalid SEED_LAMPS entry %q: %w", item, domain.ErrInvalidLampName)
		}
		if err := domain.ValidateBrightness(seed.Brightness); err != nil {
			return nil, fmt.Errorf("invalid SEED_LAMPS entry %q: %w", item, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
