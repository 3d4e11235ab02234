package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typeracer/internal/client"
	"github.com/verte-zerg/typeracer/internal/config"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/stats"
	"github.com/verte-zerg/typeracer/internal/statsui"
)

const (
	defaultTopMistakes = 10
	defaultCurveWindow = 5
	defaultCurveHeight = 8
	remoteTimeout      = 10 * time.Second
)

var (
	statsSince       string
	statsLast        int
	statsTop         int
	statsUser        string
	statsCurveWindow int
	statsTUI         bool
	statsServer      string

	boardServer string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsTop, "top", defaultTopMistakes, "number of missed characters to show")
	cmd.Flags().StringVar(&statsUser, "user", "", "player id (default the local player)")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "browse stats interactively")
	cmd.Flags().StringVar(&statsServer, "server", "", "read stats from a race server instead of the local db")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsTop < 0 {
		return fmt.Errorf("--top must be >= 0")
	}
	if statsTUI && statsServer != "" {
		return fmt.Errorf("--tui reads the local db and cannot be combined with --server")
	}

	userID := statsUser
	if userID == "" {
		fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		player, err := config.ResolvePlayer(fileCfg.Player, config.DefaultPlayerIDPath())
		if err != nil {
			return fmt.Errorf("failed to resolve player: %w", err)
		}
		userID = player.ID
	}

	if statsServer != "" {
		return printRemoteStats(statsServer, userID)
	}

	cfg := model.StatsConfig{
		UserID: userID,
		Since:  sinceTime,
		Last:   statsLast,
		Top:    statsTop,
	}

	st, err := openStore(config.DefaultDBPath())
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsTUI {
		m := statsui.NewModel(statsui.StoreLoader(st, cfg))
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return err
	}
	out := os.Stdout
	if err := stats.RenderSummary(out, report.Summary); err != nil {
		return err
	}
	if err := stats.RenderHistory(out, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) > 0 {
		if err := stats.RenderMistakes(out, report.Mistakes, statsTop); err != nil {
			return err
		}
	}
	return stats.RenderCurves(out, report.Sessions, statsCurveWindow, 0, defaultCurveHeight, false)
}

func printRemoteStats(server, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	cl := client.New(server, zerolog.Nop())
	resp, err := cl.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load stats from %s: %w", server, err)
	}
	if err := stats.RenderSummary(os.Stdout, resp.Stats); err != nil {
		return err
	}
	return stats.RenderHistory(os.Stdout, resp.Sessions)
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the best scores per player",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().StringVar(&boardServer, "server", "", "read the leaderboard from a race server")
	return cmd
}

func runLeaderboardCmd(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	var entries []model.LeaderboardEntry
	if boardServer != "" {
		cl := client.New(boardServer, zerolog.Nop())
		board, err := cl.Leaderboard(ctx)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard from %s: %w", boardServer, err)
		}
		entries = board
	} else {
		st, err := openStore(config.DefaultDBPath())
		if err != nil {
			return err
		}
		defer closeStore(st)
		board, err := st.Leaderboard(ctx)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		entries = board
	}
	return stats.RenderLeaderboard(os.Stdout, entries)
}
