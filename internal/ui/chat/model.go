// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/scroll"
	"github.com/jeranaias/doubtbot/internal/ui/components"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// Layout heights outside the transcript viewport: header, indicator line,
// input (top border plus one line) and status bar.
const (
	headerHeight    = 1
	indicatorHeight = 1
	inputHeight     = 2
	statusHeight    = 1
	reservedHeight  = headerHeight + indicatorHeight + inputHeight + statusHeight
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
//
// Everything the scroll controller touches lives behind pointers
// (TranscriptView, Store), so copies of Model made by the update loop all
// drive the same viewport.
type Model struct {
	cfg   *config.Config
	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int

	// UI components
	header     *components.Header
	status     *components.StatusBar
	transcript *components.TranscriptView
	pending    components.PendingIndicator
	input      textinput.Model

	// Conversation
	session  *conversation.Session
	gen      conversation.Generator
	modelID  string
	recorder conversation.Recorder
	classify conversation.Classifier

	// Cancels in-flight requests on quit
	ctx    context.Context
	cancel context.CancelFunc

	exportDir  string
	wheelLines int
	notice     string
	lastErr    error
	quitting   bool
}

// Option configures a Model.
type Option func(*Model)

// WithTheme sets the theme. The default matches the terminal.
func WithTheme(theme *styles.Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithRecorder records usage for every request.
func WithRecorder(rec conversation.Recorder) Option {
	return func(m *Model) { m.recorder = rec }
}

// WithClassifier sets the error classifier used for telemetry and the
// status line.
func WithClassifier(c conversation.Classifier) Option {
	return func(m *Model) {
		if c != nil {
			m.classify = c
		}
	}
}

// WithExportDir sets where /export writes generated file names.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// New creates a chat model that asks gen for replies.
func New(cfg *config.Config, gen conversation.Generator, opts ...Option) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	m := Model{
		cfg:       cfg,
		keys:      DefaultKeyMap(),
		gen:       gen,
		modelID:   cfg.Gemini.Model,
		classify:  conversation.DefaultClassifier,
		exportDir: ".",
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.theme == nil {
		m.theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = m.theme.InputPrompt
	ti.Placeholder = "Ask Gemini anything..."
	ti.CharLimit = 8192
	ti.Focus()
	m.input = ti

	m.header = components.NewHeader(m.theme)
	m.header.SetModel(model.DisplayName(m.modelID))
	m.status = components.NewStatusBar(m.theme)
	m.pending = components.NewPendingIndicator(m.theme)

	m.transcript = components.NewTranscriptView(m.theme, m.buildRenderer())
	m.transcript.SetLineHeight(cfg.Scroll.LineHeight)
	m.transcript.SetShowTimestamps(cfg.UI.ShowTimestamps)
	m.wheelLines = wheelLines(cfg)

	tv := m.transcript
	ctrl := scroll.New(tv, scroll.WithThreshold(cfg.Scroll.NearBottomThreshold))
	store := conversation.NewStore(
		conversation.WithScrollController(ctrl),
		conversation.WithChangeHook(func(s conversation.State) { tv.SetTranscript(s.Transcript) }),
	)

	sessionOpts := []conversation.SessionOption{
		conversation.WithStore(store),
		conversation.WithClassifier(m.classify),
	}
	if m.recorder != nil {
		sessionOpts = append(sessionOpts, conversation.WithRecorder(m.recorder, m.modelID))
	}
	m.session = conversation.NewSession(gen, sessionOpts...)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			log.Printf("chat: export failed: %v", msg.Err)
			m.notice = "Export failed: " + msg.Err.Error()
		} else {
			m.notice = "Exported to " + msg.Path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.pending, cmd = m.pending.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.theme.SetSize(m.width, m.height)

	const promptLen = 2 // "> "
	m.input.Width = max(10, m.width-promptLen-2)

	m.transcript.SetSize(m.width, m.height-reservedHeight)
	m.transcript.SetRenderer(m.buildRenderer())

	// Re-wrapping changes the content height; re-anchor like any other
	// content change.
	if ctrl := m.session.Store().ScrollController(); ctrl != nil {
		ctrl.OnTranscriptChanged(m.session.State().Pending)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.keys.Jump.SetEnabled(m.ScrollState().ShowJumpAffordance)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.Jump):
		m.session.Store().JumpToBottom()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.transcript.ScrollUp(1)
		return m.userScrolled()

	case key.Matches(msg, m.keys.Down):
		m.transcript.ScrollDown(1)
		return m.userScrolled()

	case key.Matches(msg, m.keys.PageUp):
		m.transcript.PageUp()
		return m.userScrolled()

	case key.Matches(msg, m.keys.PageDown):
		m.transcript.PageDown()
		return m.userScrolled()

	case key.Matches(msg, m.keys.Home):
		m.transcript.ScrollToTop()
		return m.userScrolled()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseWheelUp:
		m.transcript.ScrollUp(m.wheelLines)
	case tea.MouseWheelDown:
		m.transcript.ScrollDown(m.wheelLines)
	default:
		return m, nil
	}
	return m.userScrolled()
}

func (m Model) userScrolled() (tea.Model, tea.Cmd) {
	m.session.Store().Dispatch(conversation.UserScrolled{})
	return m, nil
}

// submit sends the input, or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}

	store := m.session.Store()
	if !store.CanSubmit() {
		return m, nil
	}
	eff := store.Dispatch(conversation.Submit{Text: m.input.Value()})
	if eff.Rejected || eff.Request == nil {
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.notice = ""
	m.lastErr = nil
	return m, tea.Batch(m.pending.Start(), requestCmd(m.ctx, m.gen, *eff.Request))
}

// requestCmd performs the remote call off the update loop.
func requestCmd(ctx context.Context, gen conversation.Generator, req conversation.Request) tea.Cmd {
	return func() tea.Msg {
		return ReplyMsg{Result: conversation.Execute(ctx, gen, req)}
	}
}

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	eff := m.session.Store().Dispatch(msg.Result.Event())
	if eff.Rejected {
		return m, nil
	}

	m.pending.Stop()
	m.session.Record(m.ctx, msg.Result)
	if err := msg.Result.Err; err != nil {
		log.Printf("chat: request failed: %v", err)
		m.lastErr = err
	}
	return m, m.input.Focus()
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	if err := m.session.Clear(); err != nil {
		m.notice = "Wait for the reply before clearing"
		return m, nil
	}
	m.notice = "Conversation cleared"
	m.lastErr = nil
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	m.quitting = true
	return m, tea.Quit
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil || msg.Config == nil {
		log.Printf("chat: config reload failed: %v", msg.Err)
		m.notice = "Config reload failed; keeping current settings"
		return m, nil
	}

	m.cfg = msg.Config
	if ctrl := m.session.Store().ScrollController(); ctrl != nil {
		ctrl.SetThreshold(m.cfg.Scroll.NearBottomThreshold)
	}
	m.transcript.SetLineHeight(m.cfg.Scroll.LineHeight)
	m.transcript.SetShowTimestamps(m.cfg.UI.ShowTimestamps)
	m.transcript.SetRenderer(m.buildRenderer())
	m.wheelLines = wheelLines(m.cfg)
	m.notice = "Config reloaded"
	return m, nil
}

// buildRenderer creates the renderer named in the config. Literal text is
// never HTML-escaped in the terminal.
func (m Model) buildRenderer() format.Renderer {
	width := m.cfg.UI.WordWrap
	if width == 0 && m.width > 0 {
		width = m.width - 1
	}
	opts := []format.Option{format.WithVerbatimCodeBlocks(m.cfg.Format.VerbatimCodeBlocks)}

	r, err := format.NewRenderer(m.cfg.UI.Renderer, m.theme, width, opts...)
	if err != nil {
		log.Printf("chat: renderer %q unavailable, using builtin: %v", m.cfg.UI.Renderer, err)
		return format.New(format.Terminal(m.theme), opts...)
	}
	return r
}

func wheelLines(cfg *config.Config) int {
	if cfg.Scroll.WheelLines < 1 {
		return 3
	}
	return cfg.Scroll.WheelLines
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the conversation state.
func (m Model) State() conversation.State {
	return m.session.State()
}

// ScrollState returns the scroll controller state.
func (m Model) ScrollState() scroll.State {
	return m.session.Store().Scroll()
}

// Transcript returns the transcript view.
func (m Model) Transcript() *components.TranscriptView {
	return m.transcript
}

// Notice returns the transient status message.
func (m Model) Notice() string {
	return m.notice
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}

// ModelID returns the model answering prompts.
func (m Model) ModelID() string {
	return m.modelID
}
