// Package main provides the CLI entrypoint for typeracer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typeracer/internal/client"
	"github.com/verte-zerg/typeracer/internal/config"
	"github.com/verte-zerg/typeracer/internal/corpus"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/score"
	"github.com/verte-zerg/typeracer/internal/session"
	"github.com/verte-zerg/typeracer/internal/stats"
	"github.com/verte-zerg/typeracer/internal/store"
	"github.com/verte-zerg/typeracer/internal/tui"
)

const (
	defaultDuration   = 30
	defaultWords      = 40
	defaultCaps       = 0.0
	defaultPunct      = 0.0
	defaultWeakTop    = 8
	defaultWeakFactor = 2.0
	defaultServer     = "http://localhost:8080"
	weakWindow        = 20
)

const defaultPunctSet = ".,!?;:'-"

var (
	soloDuration   int
	soloWindow     int
	soloCompact    bool
	soloWordlist   string
	soloWords      int
	soloCaps       float64
	soloPunct      float64
	soloPunctSet   string
	soloFocusWeak  bool
	soloWeakTop    int
	soloWeakFactor float64
	soloSubmit     bool
	soloServer     string
)

// soloConfig holds the resolved solo settings.
type soloConfig struct {
	Duration   int
	Window     int
	Wordlist   string
	Words      int
	CapsPct    float64
	PunctPct   float64
	PunctSet   string
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	Submit     bool
	Server     string
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typeracer",
		Short:         "Timed typing games and two-player races",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runSoloCmd,
	}
	addSoloFlags(rootCmd)

	soloCmd := &cobra.Command{
		Use:   "solo",
		Short: "Play a timed solo game",
		Args:  cobra.NoArgs,
		RunE:  runSoloCmd,
	}
	addSoloFlags(soloCmd)

	rootCmd.AddCommand(soloCmd)
	rootCmd.AddCommand(newRaceCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCorpusCmd())

	return rootCmd
}

func addSoloFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&soloDuration, "duration", defaultDuration, "game length in seconds")
	cmd.Flags().IntVar(&soloWindow, "window", session.DefaultWindow, "characters shown around the cursor")
	cmd.Flags().BoolVar(&soloCompact, "compact", false, "use the narrow display window")
	cmd.Flags().StringVar(&soloWordlist, "wordlist", "", "generate text from this word list (path or language code)")
	cmd.Flags().IntVar(&soloWords, "words", defaultWords, "words per generated text")
	cmd.Flags().Float64Var(&soloCaps, "caps", defaultCaps, "probability of capitalized first letter (0-1)")
	cmd.Flags().Float64Var(&soloPunct, "punct", defaultPunct, "punctuation probability per word (0-1)")
	cmd.Flags().StringVar(&soloPunctSet, "punct-set", defaultPunctSet, "punctuation set")
	cmd.Flags().BoolVar(&soloFocusWeak, "focus-weak", false, "bias generated text toward often missed characters")
	cmd.Flags().IntVar(&soloWeakTop, "weak-top", defaultWeakTop, "number of weak characters to focus on")
	cmd.Flags().Float64Var(&soloWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak characters")
	cmd.Flags().BoolVar(&soloSubmit, "submit", false, "also submit scores to the race server")
	cmd.Flags().StringVar(&soloServer, "server", defaultServer, "race server base URL")
}

func runSoloCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "duration", &soloDuration, fileCfg.Solo.Duration)
	applyIntConfig(cmd, "window", &soloWindow, fileCfg.Solo.Window)
	applyStringConfig(cmd, "wordlist", &soloWordlist, fileCfg.Solo.Wordlist)
	applyIntConfig(cmd, "words", &soloWords, fileCfg.Solo.Words)
	applyFloatConfig(cmd, "caps", &soloCaps, fileCfg.Solo.CapsPct)
	applyFloatConfig(cmd, "punct", &soloPunct, fileCfg.Solo.PunctPct)
	applyStringConfig(cmd, "punct-set", &soloPunctSet, fileCfg.Solo.PunctSet)
	applyBoolConfig(cmd, "focus-weak", &soloFocusWeak, fileCfg.Solo.FocusWeak)
	applyIntConfig(cmd, "weak-top", &soloWeakTop, fileCfg.Solo.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &soloWeakFactor, fileCfg.Solo.WeakFactor)
	applyBoolConfig(cmd, "submit", &soloSubmit, fileCfg.Solo.Submit)
	applyStringConfig(cmd, "server", &soloServer, config.EnvString(config.EnvServer, fileCfg.Race.Server))

	cfg := soloConfig{
		Duration:   soloDuration,
		Window:     soloWindow,
		Wordlist:   soloWordlist,
		Words:      soloWords,
		CapsPct:    soloCaps,
		PunctPct:   soloPunct,
		PunctSet:   soloPunctSet,
		FocusWeak:  soloFocusWeak,
		WeakTop:    soloWeakTop,
		WeakFactor: soloWeakFactor,
		Submit:     soloSubmit,
		Server:     soloServer,
	}
	cfg.Wordlist = resolveWordListPath(cfg.Wordlist)
	if soloCompact && !cmd.Flags().Changed("window") {
		cfg.Window = session.CompactWindow
	}
	if err := validateConfig(cfg); err != nil {
		return err
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

	st, err := openStore(config.DefaultDBPath())
	if err != nil {
		return err
	}
	defer closeStore(st)

	source, err := soloCorpusSource(st, player, cfg)
	if err != nil {
		return err
	}

	duration := time.Duration(cfg.Duration) * time.Second
	local := score.NewService(score.DefaultValidator(), st, st, logger)
	submit := tui.SubmitFunc(local.Submit)
	switch {
	case duration != score.ExpectedDuration:
		logger.Info().Dur("duration", duration).Msg("non-standard duration, games stay off the leaderboard")
		submit = local.Practice
	case cfg.Submit:
		remote := client.New(cfg.Server, logger)
		submit = submitBoth(local.Submit, remote.SubmitScore)
	}

	m, err := tui.NewSolo(context.Background(), tui.SoloOptions{
		Player:   player,
		Corpus:   source,
		Submit:   submit,
		Duration: duration,
		Window:   cfg.Window,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// soloCorpusSource picks between the stored corpus and generated text.
func soloCorpusSource(st *store.Store, player model.Player, cfg soloConfig) (tui.CorpusFunc, error) {
	if cfg.Wordlist == "" {
		provider := corpus.NewProvider(st)
		return provider.Corpus, nil
	}
	words, err := corpus.LoadWords(cfg.Wordlist, corpus.FilterForLang(langFromPath(cfg.Wordlist)))
	if err != nil {
		return nil, wordListLoadError(cfg.Wordlist, err)
	}
	gen := corpus.NewGenerator()
	weakNoticePrinted := false
	return func(ctx context.Context) (model.Corpus, error) {
		opts := corpus.GenerateOptions{
			Words:    cfg.Words,
			CapsPct:  cfg.CapsPct,
			PunctPct: cfg.PunctPct,
			PunctSet: []rune(cfg.PunctSet),
		}
		if cfg.FocusWeak {
			weak, err := weakChars(ctx, st, player, cfg.WeakTop)
			if err != nil {
				return model.Corpus{}, err
			}
			if len(weak) == 0 && !weakNoticePrinted {
				logErrln("no mistakes recorded for weak-char focus yet; using normal generator")
				weakNoticePrinted = true
			}
			opts.Weak = weak
			opts.WeakFactor = cfg.WeakFactor
		}
		return model.Corpus{Text: gen.Generate(words, opts)}, nil
	}, nil
}

func weakChars(ctx context.Context, st *store.Store, player model.Player, top int) (map[rune]struct{}, error) {
	report, err := stats.BuildReport(ctx, st, model.StatsConfig{UserID: player.ID, Last: weakWindow})
	if err != nil {
		return nil, fmt.Errorf("failed to load weak chars: %w", err)
	}
	return stats.WeakChars(report.Mistakes, top), nil
}

// submitBoth stores the game locally, then forwards it to the server. The
// local score is returned even when the server refuses it.
func submitBoth(local, remote tui.SubmitFunc) tui.SubmitFunc {
	return func(ctx context.Context, sub score.Submission) (float64, error) {
		wpm, err := local(ctx, sub)
		if err != nil {
			return 0, err
		}
		if _, err := remote(ctx, sub); err != nil {
			var rejected *score.RejectedError
			if errors.As(err, &rejected) {
				return wpm, err
			}
			return wpm, fmt.Errorf("saved locally, server submit failed: %w", err)
		}
		return wpm, nil
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		id, err := config.LoadOrCreatePlayerID(config.DefaultPlayerIDPath())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate(id)), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate(playerID string) string {
	return fmt.Sprintf(`# typeracer configuration
# Uncomment a value to enable it. CLI flags override config values.

[player]
id = %q                   # Stable player id
# name = "you"            # Display name (default $USER)

[solo]
# duration = %d           # Game length in seconds
# window = %d             # Characters shown around the cursor
# wordlist = ""           # Generate text from this word list
# words = %d              # Words per generated text
# caps = %.2f             # Probability of capitalized first letter (0-1)
# punct = %.2f            # Punctuation probability per word (0-1)
# punct-set = %q          # Punctuation set
# focus-weak = false      # Bias generated text toward weak characters
# weak-top = %d           # Number of weak characters to focus on
# weak-factor = %.1f      # Weight factor for weak characters
# submit = false          # Also submit solo scores to the server

[race]
# server = %q             # Race server base URL
# progress-interval = %d  # Minimum ms between progress updates

[server]
# addr = %q               # Listen address
# db = ""                 # SQLite path (default in the data dir)
# nats-url = ""           # NATS URL for multi-instance fan-out
# log-level = "info"      # debug, info, warn or error
`,
		playerID,
		defaultDuration,
		session.DefaultWindow,
		defaultWords,
		defaultCaps,
		defaultPunct,
		defaultPunctSet,
		defaultWeakTop,
		defaultWeakFactor,
		defaultServer,
		defaultProgressIntervalMs,
		defaultAddr,
	)
}

func validateConfig(cfg soloConfig) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.Window <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	if cfg.Words <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	if cfg.CapsPct < 0 || cfg.CapsPct > 1 {
		return fmt.Errorf("--caps must be between 0 and 1")
	}
	if cfg.PunctPct < 0 || cfg.PunctPct > 1 {
		return fmt.Errorf("--punct must be between 0 and 1")
	}
	if cfg.PunctPct > 0 && cfg.PunctSet == "" {
		return fmt.Errorf("--punct-set must not be empty")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.Submit && strings.TrimSpace(cfg.Server) == "" {
		return fmt.Errorf("--server must be set to submit scores")
	}
	return nil
}

func wordListLoadError(path string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load word list: %v", err),
		fmt.Sprintf("expected word list at: %s", path),
		fmt.Sprintf("Default location: %s", config.DefaultWordListDir()),
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

// resolveWordListPath maps a bare language code such as "en" to the word
// list in the default directory.
func resolveWordListPath(v string) string {
	if v == "" || strings.ContainsRune(v, filepath.Separator) || filepath.Ext(v) != "" {
		return v
	}
	return config.DefaultWordListPath(v)
}

// langFromPath reads the language code from a word list named like en.txt.
func langFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// openLogFile sends structured logs to a file while a TUI owns the terminal.
func openLogFile(path string) (zerolog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for the log file.
			_ = cerr
		}
	}, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
