package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typeracer/internal/client"
	"github.com/verte-zerg/typeracer/internal/config"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/session"
	"github.com/verte-zerg/typeracer/internal/tui"
)

const defaultProgressIntervalMs = 500

var (
	raceServer           string
	raceHost             bool
	raceJoin             string
	raceProgressInterval int
	raceWindow           int
)

func newRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race another player through a server",
		Args:  cobra.NoArgs,
		RunE:  runRaceCmd,
	}
	cmd.Flags().StringVar(&raceServer, "server", defaultServer, "race server base URL")
	cmd.Flags().BoolVar(&raceHost, "host", false, "create a room right away")
	cmd.Flags().StringVar(&raceJoin, "join", "", "join the room with this code")
	cmd.Flags().IntVar(&raceProgressInterval, "progress-interval", defaultProgressIntervalMs, "minimum ms between progress updates")
	cmd.Flags().IntVar(&raceWindow, "window", session.DefaultWindow, "characters shown around the cursor")
	return cmd
}

func runRaceCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &raceServer, config.EnvString(config.EnvServer, fileCfg.Race.Server))
	applyIntConfig(cmd, "progress-interval", &raceProgressInterval, fileCfg.Race.ProgressInterval)
	applyIntConfig(cmd, "window", &raceWindow, fileCfg.Solo.Window)
	if !cmd.Flags().Changed("progress-interval") {
		raceProgressInterval = config.GetEnvAsInt(config.EnvProgressInterval, raceProgressInterval)
	}

	if raceHost && raceJoin != "" {
		return fmt.Errorf("--host and --join are mutually exclusive")
	}
	if raceJoin != "" && !race.ValidCode(race.NormalizeCode(raceJoin)) {
		return fmt.Errorf("--join must be a %d character room code", race.CodeLength)
	}
	if strings.TrimSpace(raceServer) == "" {
		return fmt.Errorf("--server must not be empty")
	}
	if raceProgressInterval <= 0 {
		return fmt.Errorf("--progress-interval must be > 0")
	}
	if raceWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	player, err := config.ResolvePlayer(fileCfg.Player, config.DefaultPlayerIDPath())
	if err != nil {
		return fmt.Errorf("failed to resolve player: %w", err)
	}

	logger, closeLog, err := openLogFile(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer closeLog()

	cl := client.New(raceServer, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = cl.Health(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("race server %s is not reachable: %w", raceServer, err)
	}

	racer := race.NewRacer(cl, player, race.RacerOptions{
		Logger:           logger,
		ProgressInterval: time.Duration(raceProgressInterval) * time.Millisecond,
		Window:           raceWindow,
	})
	m := tui.NewRace(tui.RaceOptions{
		Racer:  racer,
		API:    cl,
		Record: cl.RecordSession,
		Host:   raceHost,
		Join:   raceJoin,
		Logger: logger,
	})
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
