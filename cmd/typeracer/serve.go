package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typeracer/internal/bus"
	"github.com/verte-zerg/typeracer/internal/config"
	"github.com/verte-zerg/typeracer/internal/corpus"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
	"github.com/verte-zerg/typeracer/internal/server"
)

const defaultAddr = ":8080"

var (
	serveAddr     string
	serveDB       string
	serveNATSURL  string
	serveLogLevel string
	serveEnvFile  string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the race server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "SQLite path (default in the data dir)")
	cmd.Flags().StringVar(&serveNATSURL, "nats-url", "", "NATS URL for multi-instance fan-out")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "dotenv file to load")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(serveEnvFile); err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, config.EnvString(config.EnvAddr, fileCfg.Server.Addr))
	applyStringConfig(cmd, "db", &serveDB, config.EnvString(config.EnvDB, fileCfg.Server.DB))
	applyStringConfig(cmd, "nats-url", &serveNATSURL, config.EnvString(config.EnvNATSURL, fileCfg.Server.NATSURL))
	applyStringConfig(cmd, "log-level", &serveLogLevel, config.EnvString(config.EnvLogLevel, fileCfg.Server.LogLevel))

	if strings.TrimSpace(serveAddr) == "" {
		return fmt.Errorf("--addr must not be empty")
	}
	level, err := zerolog.ParseLevel(strings.ToLower(serveLogLevel))
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Str("service", "typeracer").
		Logger()

	dbPath := serveDB
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := corpus.Ensure(ctx, st); err != nil {
		return fmt.Errorf("failed to seed corpus: %w", err)
	}

	var roomBus bus.Bus = bus.NewLocalBus()
	if serveNATSURL != "" {
		nb, err := bus.NewNATSBus(bus.DefaultNATSConfig(serveNATSURL), logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := nb.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close NATS connection")
			}
		}()
		roomBus = nb
	}

	provider := corpus.NewProvider(st)
	races := race.NewService(st, provider, race.Options{Bus: roomBus, Logger: logger})
	scores := score.NewService(score.DefaultValidator(), st, st, logger)
	srv := server.New(races, scores, st, provider, server.DefaultConfig(), logger)

	logger.Info().Str("db", dbPath).Bool("nats", serveNATSURL != "").Msg("race server configured")
	return srv.Run(ctx, serveAddr)
}
