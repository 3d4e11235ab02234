package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/keys"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
)

// RaceOptions configures the race screen. Host or Join start the matching
// lobby action right away. Record may be nil.
type RaceOptions struct {
	Racer  *race.Racer
	API    race.API
	Record RecordFunc
	Host   bool
	Join   string
	Logger zerolog.Logger
}

type autoStartMsg struct{}

type snapshotMsg struct {
	gen  int
	snap race.Snapshot
	ch   <-chan race.Snapshot
}

type watchClosedMsg struct {
	gen int
}

type recordMsg struct {
	err error
}

// RaceModel drives a race.Racer from terminal input and room snapshots.
type RaceModel struct {
	opts  RaceOptions
	racer *race.Racer
	api   race.API
	log   zerolog.Logger
	keys  *keys.Normalizer

	input   textinput.Model
	joining bool
	self    progress.Model
	other   progress.Model

	state       race.State
	wasHost     bool
	gen         int
	watchGen    int
	watchCancel context.CancelFunc
	recorded    bool
	status      string
	err         error

	width  int
	height int
}

// NewRace returns a race screen in the lobby.
func NewRace(opts RaceOptions) *RaceModel {
	input := textinput.New()
	input.Prompt = "Room code: "
	input.Placeholder = "ABC234"
	input.CharLimit = race.CodeLength
	m := &RaceModel{
		opts:  opts,
		racer: opts.Racer,
		api:   opts.API,
		log:   opts.Logger,
		input: input,
		self:  progress.New(progress.WithDefaultGradient()),
		other: progress.New(progress.WithSolidFill("#8C8C8C")),
		state: opts.Racer.State(),
	}
	m.keys = keys.NewNormalizer(m.onChar)
	return m
}

// Init implements tea.Model.
func (m *RaceModel) Init() tea.Cmd {
	if m.opts.Host || m.opts.Join != "" {
		return func() tea.Msg { return autoStartMsg{} }
	}
	return nil
}

// Update implements tea.Model.
func (m *RaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := contentWidth(msg.Width) - 24
		if barWidth < 10 {
			barWidth = 10
		}
		m.self.Width = barWidth
		m.other.Width = barWidth
		return m, nil
	case autoStartMsg:
		if m.opts.Join != "" {
			m.join(ctx, m.opts.Join)
		} else {
			m.host(ctx)
		}
		return m, m.transition(ctx)
	case snapshotMsg:
		if msg.gen != m.watchGen {
			return m, nil
		}
		cmd := m.applySnapshot(ctx, msg.snap)
		if msg.snap.Gone || m.watchGen != msg.gen {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitSnapshot(msg.gen, msg.ch))
	case watchClosedMsg:
		if msg.gen == m.watchGen && m.state != race.Lobby {
			m.log.Debug().Str("room", m.racer.RoomID()).Msg("room watch closed")
		}
		return m, nil
	case countdownMsg:
		if msg.gen != m.gen || m.racer.State() != race.Countdown {
			return m, nil
		}
		if m.racer.CountdownTick() > 0 {
			return m, countdownAfter(m.gen)
		}
		return m, m.transition(ctx)
	case tickMsg:
		if msg.gen != m.gen || m.racer.State() != race.Racing {
			return m, nil
		}
		m.racer.Tick()
		return m, tea.Batch(tickAfter(m.gen), m.transition(ctx))
	case recordMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("failed to record race")
			m.status = errorStyle.Render(fmt.Sprintf("History not saved: %v", msg.err))
		} else {
			m.status = "Race saved to history"
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(ctx, msg)
	}
	if m.joining {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *RaceModel) handleKey(ctx context.Context, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.leave(ctx)
		return m, tea.Quit
	}
	switch m.racer.State() {
	case race.Lobby:
		return m.handleLobbyKey(ctx, msg)
	case race.Waiting:
		switch msg.Type {
		case tea.KeyEsc:
			m.leave(ctx)
		case tea.KeyEnter:
			if err := m.racer.StartCountdown(ctx); err != nil {
				m.log.Debug().Err(err).Msg("start countdown refused")
			}
		}
	case race.Countdown:
		if msg.Type == tea.KeyEsc {
			m.leave(ctx)
		}
	case race.Racing:
		if msg.Type == tea.KeyEsc {
			m.leave(ctx)
			break
		}
		m.keys.Press(msg)
	case race.Finished:
		switch {
		case msg.Type == tea.KeyEsc:
			m.leave(ctx)
		case msg.String() == "q":
			m.leave(ctx)
			return m, tea.Quit
		case msg.String() == "r":
			return m, m.raceAgain(ctx)
		}
	}
	return m, m.transition(ctx)
}

func (m *RaceModel) handleLobbyKey(ctx context.Context, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.joining {
		switch msg.Type {
		case tea.KeyEsc:
			m.joining = false
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			m.join(ctx, m.input.Value())
			return m, m.transition(ctx)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "h":
		m.host(ctx)
		return m, m.transition(ctx)
	case "j":
		return m, m.startJoining()
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *RaceModel) startJoining() tea.Cmd {
	m.joining = true
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *RaceModel) host(ctx context.Context) {
	m.racer.ClearErr()
	if err := m.racer.Host(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to host race")
		return
	}
	m.wasHost = true
}

func (m *RaceModel) join(ctx context.Context, code string) {
	m.racer.ClearErr()
	if err := m.racer.Join(ctx, code); err != nil {
		m.log.Info().Err(err).Str("code", code).Msg("failed to join race")
		return
	}
	m.wasHost = false
	m.joining = false
	m.input.Blur()
}

func (m *RaceModel) leave(ctx context.Context) {
	if m.racer.State() == race.Lobby {
		return
	}
	if err := m.racer.Leave(ctx); err != nil {
		m.err = err
	}
}

// raceAgain leaves the finished room. The host opens a new room; a guest
// is asked for the next code.
func (m *RaceModel) raceAgain(ctx context.Context) tea.Cmd {
	if err := m.racer.RaceAgain(ctx); err != nil {
		m.err = err
	}
	cmd := m.transition(ctx)
	if m.wasHost {
		m.host(ctx)
		return tea.Batch(cmd, m.transition(ctx))
	}
	return tea.Batch(cmd, m.startJoining())
}

func (m *RaceModel) onChar(r rune) {
	m.racer.Keystroke(r)
}

func (m *RaceModel) applySnapshot(ctx context.Context, snap race.Snapshot) tea.Cmd {
	m.racer.Apply(snap)
	return m.transition(ctx)
}

// transition starts the timers and side effects of a newly entered state.
func (m *RaceModel) transition(ctx context.Context) tea.Cmd {
	next := m.racer.State()
	if next == m.state {
		return nil
	}
	m.log.Debug().Str("from", m.state.String()).Str("to", next.String()).Msg("race state changed")
	m.state = next
	m.gen++
	switch next {
	case race.Lobby:
		m.stopWatch()
		m.recorded = false
		m.status = ""
		return nil
	case race.Waiting:
		m.err = nil
		m.status = ""
		m.recorded = false
		return m.startWatch(ctx)
	case race.Countdown:
		return countdownAfter(m.gen)
	case race.Racing:
		return tickAfter(m.gen)
	case race.Finished:
		return m.record()
	}
	return nil
}

func (m *RaceModel) startWatch(ctx context.Context) tea.Cmd {
	m.stopWatch()
	wctx, cancel := context.WithCancel(ctx)
	ch, err := m.api.Watch(wctx, m.racer.RoomID())
	if err != nil {
		cancel()
		m.log.Warn().Err(err).Str("room", m.racer.RoomID()).Msg("failed to watch room")
		m.err = err
		return nil
	}
	m.watchCancel = cancel
	m.watchGen++
	return waitSnapshot(m.watchGen, ch)
}

func (m *RaceModel) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchGen++
}

// Close stops the room watch.
func (m *RaceModel) Close() {
	m.stopWatch()
}

func waitSnapshot(gen int, ch <-chan race.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return watchClosedMsg{gen: gen}
		}
		return snapshotMsg{gen: gen, snap: snap, ch: ch}
	}
}

func (m *RaceModel) record() tea.Cmd {
	if m.recorded || m.opts.Record == nil {
		return nil
	}
	s := m.racer.Session()
	if s == nil {
		return nil
	}
	res, ok := s.Result()
	if !ok {
		return nil
	}
	m.recorded = true
	sub := score.Submission{
		Player:     m.racer.Player(),
		Mode:       model.ModeRace,
		Result:     res,
		ErrorCount: s.Snapshot().ErrorCount,
		Mistakes:   s.Mistakes(),
	}
	recordFn := m.opts.Record
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return recordMsg{err: recordFn(ctx, sub)}
	}
}

// View implements tea.Model.
func (m *RaceModel) View() string {
	var content, footer string
	switch m.racer.State() {
	case race.Lobby:
		content, footer = m.viewLobby(), "h host  j join  q quit"
	case race.Waiting:
		content, footer = m.viewWaiting(), "esc leave  ctrl+c quit"
	case race.Countdown:
		content, footer = m.viewCountdown(), "esc leave"
	case race.Racing:
		content, footer = m.viewRacing(), "esc leave  ctrl+c quit"
	case race.Finished:
		content, footer = m.viewFinished(), "r race again  esc lobby  q quit"
	}
	return place(m.width, m.height, joinLines(content, m.errLine()), footer)
}

func (m *RaceModel) errLine() string {
	err := m.racer.Err()
	if err == nil {
		err = m.err
	}
	if err == nil {
		return ""
	}
	return errorStyle.Render(err.Error())
}

func (m *RaceModel) viewLobby() string {
	lines := []string{titleStyle.Render("Typer Racer")}
	if m.joining {
		lines = append(lines, m.input.View(), footerStyle.Render("enter join  esc back"))
	} else {
		lines = append(lines, "Host a new race or join a friend with their room code.")
	}
	return joinLines(lines...)
}

func (m *RaceModel) viewWaiting() string {
	code := valueStyle.Render(m.racer.Code())
	if !m.racer.IsHost() {
		return joinLines(
			fmt.Sprintf("Room %s", code),
			"Waiting for the host to start the race...",
		)
	}
	opp, ok := m.racer.Opponent()
	hint := "Share the code and wait for an opponent to join."
	if ok {
		hint = fmt.Sprintf("%s joined. Press enter to start.", valueStyle.Render(opp.Name))
	}
	return joinLines(fmt.Sprintf("Room code %s", code), hint)
}

func (m *RaceModel) viewCountdown() string {
	n := m.racer.CountdownValue()
	if n <= 0 {
		return titleStyle.Render("Go!")
	}
	return joinLines(
		footerStyle.Render("Get ready"),
		titleStyle.Render(fmt.Sprintf("%d", n)),
	)
}

func (m *RaceModel) viewRacing() string {
	s := m.racer.Session()
	snap := s.Snapshot()
	lines := []string{m.viewStandings(snap.CorpusLength)}
	if s.Done() {
		lines = append(lines, footerStyle.Render("Finished! Waiting for your opponent..."))
	} else {
		lines = append(lines,
			valueStyle.Render(fmt.Sprintf("%ds", snap.Remaining)),
			renderBoard(snap, contentWidthOrZero(m.width)))
	}
	return joinLines(lines...)
}

func (m *RaceModel) viewStandings(corpusLength int) string {
	me := m.racer.Self()
	rows := []string{m.standingRow(m.self, me, corpusLength)}
	if opp, ok := m.racer.Opponent(); ok {
		rows = append(rows, m.standingRow(m.other, opp, corpusLength))
	}
	return strings.Join(rows, "\n")
}

func (m *RaceModel) standingRow(bar progress.Model, st race.Standing, corpusLength int) string {
	pct := 0.0
	if corpusLength > 0 {
		pct = float64(st.CharsTyped) / float64(corpusLength)
	}
	label := st.Name
	switch {
	case st.Disconnected:
		label += " (left)"
	case st.Finished:
		label += " (done)"
	}
	return fmt.Sprintf("%-12s %s %6.1f WPM", truncate(label, 12), bar.ViewAs(pct), st.WPM)
}

func (m *RaceModel) viewFinished() string {
	me := m.racer.Self()
	lines := []string{
		titleStyle.Render(m.racer.Outcome().String()),
		fmt.Sprintf("You %s WPM", valueStyle.Render(fmt.Sprintf("%.2f", me.WPM))),
	}
	if opp, ok := m.racer.Opponent(); ok {
		lines = append(lines, fmt.Sprintf("%s %s WPM", opp.Name, valueStyle.Render(fmt.Sprintf("%.2f", opp.WPM))))
	}
	if s := m.racer.Session(); s != nil {
		lines = append(lines, renderMistakes(s.Mistakes()))
	}
	lines = append(lines, m.status)
	return joinLines(lines...)
}

func contentWidthOrZero(width int) int {
	if width == 0 {
		return 0
	}
	return contentWidth(width)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}
