package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	grpcAdapter "github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/mqtt"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/web"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
	"github.com/quentinrf/plant-monitor/services/lamp-service/pkg/tlsconfig"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Read configuration from environment
	config, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(config.LogLevel)

	log.Info().Msg("starting lamp service")

	// Initialize repository
	var repo domain.LampRepository
	switch config.RepoType {
	case "sqlite":
		r, err := sqlite.NewLampRepository(config.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", config.DBPath).Msg("failed to open SQLite database")
		}
		defer r.Close()
		repo = r
		log.Info().Str("db_path", config.DBPath).Msg("initialized SQLite repository")
	default:
		repo = memory.NewLampRepository()
		log.Info().Msg("initialized in-memory repository")
	}

	// Initialize switch
	var sw ports.Switch
	switch config.SwitchType {
	case "grpc":
		creds := insecure.NewCredentials()
		if config.TLSCert != "" {
			tlsCfg, err := tlsconfig.LoadClientTLS(config.TLSCert, config.TLSKey, config.TLSCA)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to load TLS config")
			}
			creds = credentials.NewTLS(tlsCfg)
			log.Info().Msg("mTLS enabled")
		} else {
			log.Warn().Msg("TLS_CERT not set, talking to the switch without TLS (dev mode only)")
		}

		client, err := grpcAdapter.NewSwitchClient(config.SwitchAddr, grpc.WithTransportCredentials(creds))
		if err != nil {
			log.Fatal().Err(err).Str("addr", config.SwitchAddr).Msg("failed to create switch client")
		}
		defer client.Close()
		sw = client
		log.Info().Str("addr", config.SwitchAddr).Msg("initialized gRPC switch")
	case "mqtt":
		hostname, _ := os.Hostname()
		s, err := mqtt.NewSwitch(config.MQTTBroker, "lamp-service-"+hostname, config.MQTTTopicPrefix)
		if err != nil {
			log.Fatal().Err(err).Str("broker", config.MQTTBroker).Msg("failed to connect to MQTT broker")
		}
		defer s.Close()
		sw = s
		log.Info().Str("broker", config.MQTTBroker).Msg("initialized MQTT switch")
	default:
		sw = mock.NewFakeSwitch()
		log.Info().Msg("initialized mock switch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedLamps(ctx, repo, config.SeedLamps)

	service := ports.NewLampModeService(repo, sw, ports.WithSwitchTimeout(config.SwitchTimeout))

	// Start background resync
	if config.ResyncInterval > 0 {
		resyncer := ports.NewResyncer(repo, sw, config.ResyncInterval, config.SwitchTimeout)
		go resyncer.Start(ctx)
	}

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           web.NewServer(repo, service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", config.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	cancel() // Stop resync
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}

// seedLamps creates the configured lamps that don't exist yet
func seedLamps(ctx context.Context, repo domain.LampRepository, seeds []seedLamp) {
	for _, seed := range seeds {
		lamp, err := domain.NewLamp(seed.Name, seed.Brightness)
		if err != nil {
			log.Error().Err(err).Str("name", seed.Name).Msg("skipping invalid seed lamp")
			continue
		}

		err = repo.CreateLamp(ctx, lamp)
		switch {
		case errors.Is(err, domain.ErrDuplicateLampName):
			log.Debug().Str("name", seed.Name).Msg("seed lamp already exists")
		case err != nil:
			log.Fatal().Err(err).Str("name", seed.Name).Msg("failed to seed lamp")
		default:
			log.Info().Int64("lamp_id", lamp.ID).Str("name", lamp.Name).Msg("seeded lamp")
		}
	}
}
