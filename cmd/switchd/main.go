// Command switchd exposes a lamp switch over gRPC. It drives the simulated
// switch, which logs every command it receives.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	grpcAdapter "github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/lamp-service/pkg/tlsconfig"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("starting switch daemon")

	config := loadConfig()

	handler := grpcAdapter.NewSwitchHandler(mock.NewFakeSwitch())

	// Configure TLS if certificates are provided
	var serverOpts []grpc.ServerOption
	if config.TLSCert != "" {
		tlsCfg, err := tlsconfig.LoadServerTLS(config.TLSCert, config.TLSKey, config.TLSCA)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, starting without TLS (dev mode only)")
	}

	grpcServer := grpc.NewServer(serverOpts...)
	grpcAdapter.RegisterSwitchServiceServer(grpcServer, handler)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", config.Port))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}

	log.Info().Str("port", config.Port).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down switch daemon...")
	grpcServer.GracefulStop()
	log.Info().Msg("switch daemon stopped")
}

// Config holds the daemon configuration
type Config struct {
	Port    string
	TLSCert string
	TLSKey  string
	TLSCA   string
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "50052"
	}

	return Config{
		Port:    port,
		TLSCert: os.Getenv("TLS_CERT"),
		TLSKey:  os.Getenv("TLS_KEY"),
		TLSCA:   os.Getenv("TLS_CA"),
	}
}
