package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/keys"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/score"
	"github.com/verte-zerg/typeracer/internal/session"
)

// SoloOptions configures a solo game. Submit may be nil to keep scores local
// to the screen.
type SoloOptions struct {
	Player   model.Player
	Corpus   CorpusFunc
	Submit   SubmitFunc
	Duration time.Duration
	Window   int
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

type submitMsg struct {
	gen int
	wpm float64
	err error
}

// SoloModel implements the solo typing game.
type SoloModel struct {
	opts    SoloOptions
	log     zerolog.Logger
	keys    *keys.Normalizer
	corpus  model.Corpus
	session *session.Session

	// gen invalidates ticks and submissions of a previous game.
	gen     int
	ticking bool
	status  string
	err     error

	width  int
	height int
}

// NewSolo loads the first corpus and returns a ready model.
func NewSolo(ctx context.Context, opts SoloOptions) (*SoloModel, error) {
	if opts.Corpus == nil {
		return nil, errors.New("corpus source is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	m := &SoloModel{opts: opts, log: opts.Logger}
	m.keys = keys.NewNormalizer(m.onChar)
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SoloModel) load(ctx context.Context) error {
	c, err := m.opts.Corpus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	s, err := session.New(c.Text, session.Options{
		Duration: m.opts.Duration,
		Window:   m.opts.Window,
		Policy:   session.PolicyFixed,
		Clock:    m.opts.Clock,
	})
	if err != nil {
		return err
	}
	m.corpus = c
	m.session = s
	m.gen++
	m.ticking = false
	m.status = ""
	m.err = nil
	return nil
}

// Init implements tea.Model.
func (m *SoloModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *SoloModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case submitMsg:
		m.handleSubmit(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *SoloModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		m.reset()
		return m, nil
	case tea.KeyCtrlS:
		m.skip()
		return m, nil
	case tea.KeyEsc:
		if m.session.Done() {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.session.Done() {
		return m, nil
	}
	wasStarted := m.session.Started()
	m.keys.Press(msg)
	if !wasStarted && m.session.Started() && !m.ticking {
		m.ticking = true
		return m, tickAfter(m.gen)
	}
	return m, nil
}

func (m *SoloModel) onChar(r rune) {
	m.session.Keystroke(r)
}

func (m *SoloModel) handleTick(msg tickMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	if m.session.Tick() {
		m.ticking = false
		return m.submit()
	}
	if m.session.Done() {
		m.ticking = false
		return nil
	}
	return tickAfter(m.gen)
}

// reset starts a new game. A fresh corpus is requested; on failure the
// current text is replayed.
func (m *SoloModel) reset() {
	if err := m.load(context.Background()); err != nil {
		m.log.Warn().Err(err).Msg("failed to load next corpus")
		m.session.Reset()
		m.gen++
		m.ticking = false
		m.status = ""
		m.err = err
	}
}

func (m *SoloModel) skip() {
	if m.session.Done() {
		return
	}
	m.session.SkipToResults()
	m.gen++
	m.ticking = false
}

func (m *SoloModel) submit() tea.Cmd {
	res, ok := m.session.Result()
	if !ok || m.opts.Submit == nil {
		return nil
	}
	sub := score.Submission{
		Player:     m.opts.Player,
		Mode:       model.ModeSolo,
		Result:     res,
		ErrorCount: m.session.Snapshot().ErrorCount,
		Mistakes:   m.session.Mistakes(),
	}
	m.status = "Submitting score..."
	submitFn := m.opts.Submit
	gen := m.gen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		wpm, err := submitFn(ctx, sub)
		return submitMsg{gen: gen, wpm: wpm, err: err}
	}
}

func (m *SoloModel) handleSubmit(msg submitMsg) {
	if msg.gen != m.gen {
		return
	}
	if msg.err == nil {
		m.status = fmt.Sprintf("Score saved: %.2f WPM", msg.wpm)
		return
	}
	if reason, ok := score.RejectionReason(msg.err); ok {
		m.status = fmt.Sprintf("Score rejected: %s", reason)
		return
	}
	m.log.Warn().Err(msg.err).Msg("failed to submit score")
	m.status = errorStyle.Render(fmt.Sprintf("Submission failed: %v", msg.err))
}

// View implements tea.Model.
func (m *SoloModel) View() string {
	snap := m.session.Snapshot()
	width := contentWidth(m.width)
	if m.width == 0 {
		width = 0
	}
	if m.session.Done() {
		content := renderSoloResults(snap, m.corpus, m.session.Mistakes(), m.status, width)
		return place(m.width, m.height, content, "tab new game  esc quit")
	}
	header := fmt.Sprintf("%s   %s WPM",
		valueStyle.Render(fmt.Sprintf("%ds", snap.Remaining)),
		valueStyle.Render(fmt.Sprintf("%.0f", snap.WPM)))
	var errLine string
	if m.err != nil {
		errLine = errorStyle.Render(m.err.Error())
	}
	content := joinLines(header, renderBoard(snap, width), errLine)
	return place(m.width, m.height, content, m.renderFooter(snap))
}

func (m *SoloModel) renderFooter(snap session.Snapshot) string {
	progress := 0
	if snap.CorpusLength > 0 {
		progress = int(float64(snap.CharsTyped) / float64(snap.CorpusLength) * 100)
	}
	return fmt.Sprintf("Progress %d%%  Errors %d  tab restart  ctrl+s results  ctrl+c quit", progress, snap.ErrorCount)
}
