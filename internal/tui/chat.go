// Package tui is the terminal chat view over a conversation session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
	convsvc "github.com/memoria-app/memoria/internal/service/conversation"
)

const (
	msgSendFailed  = "Failed to send message"
	msgLoadFailed  = "Failed to load conversation"
	descriptionMax = 100
	chromeHeight   = 6
)

// ErrSignedOut is returned by Run when the server rejected the session.
var ErrSignedOut = errors.New("session expired, please log in again")

type initializedMsg struct{ err error }

type sentMsg struct{ err error }

// Model is the bubbletea model for one chat screen.
type Model struct {
	ctx      context.Context
	session  *convsvc.Session
	avatarID int64
	logger   *zap.Logger

	vp      viewport.Model
	input   textinput.Model
	spinner spinner.Model
	render  renderFunc
	plain   bool

	width      int
	height     int
	suggestion int
	errMsg     string
	exitErr    error
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPlainText disables markdown rendering of replies.
func WithPlainText() Option {
	return func(m *Model) {
		m.plain = true
		m.render = plainText
	}
}

// New builds a chat view that initializes session for avatarID on start.
func New(ctx context.Context, session *convsvc.Session, avatarID int64, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Message…"
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerTint

	m := Model{
		ctx:        ctx,
		session:    session,
		avatarID:   avatarID,
		logger:     zap.NewNop(),
		vp:         viewport.New(80, 20),
		input:      ti,
		spinner:    sp,
		render:     plainText,
		width:      80,
		height:     20 + chromeHeight,
		suggestion: -1,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run starts the program and blocks until the user leaves the chat.
func Run(ctx context.Context, session *convsvc.Session, avatarID int64, opts ...Option) error {
	m := New(ctx, session, avatarID, opts...)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}

// Err reports why the view exited, if it was not the user's choice.
func (m Model) Err() error {
	return m.exitErr
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.initialize())
}

func (m Model) initialize() tea.Cmd {
	ctx, session, id := m.ctx, m.session, m.avatarID
	return func() tea.Msg {
		return initializedMsg{err: session.Initialize(ctx, id)}
	}
}

func awaitSend(ctx context.Context, send *convsvc.Send) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{err: send.Await(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		if !m.plain {
			m.render = markdownRenderer(msg.Width - 4)
		}
		m.refresh()
		return m, nil

	case initializedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, convsvc.ErrSuperseded) {
				return m, nil
			}
			if apperr.IsAuth(msg.err) {
				m.exitErr = ErrSignedOut
				return m, tea.Quit
			}
			m.errMsg = initMessage(msg.err)
			m.logger.Warn("chat initialization failed", zap.Int64("avatar_id", m.avatarID), zap.Error(msg.err))
		} else {
			m.errMsg = ""
			if av, ok := m.session.Avatar(); ok {
				m.input.Placeholder = fmt.Sprintf("Message %s...", av.Name)
			}
		}
		m.refresh()
		return m, nil

	case sentMsg:
		switch {
		case errors.Is(msg.err, convsvc.ErrSuperseded):
			return m, nil
		case apperr.IsAuth(msg.err):
			m.exitErr = ErrSignedOut
			return m, tea.Quit
		case msg.err != nil:
			m.errMsg = apperr.UserMessage(msg.err, msgSendFailed)
			m.input.SetValue(m.session.Input())
			m.input.CursorEnd()
		default:
			m.errMsg = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.session.Pending() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyTab:
			m.cycleSuggestion()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
		if m.session.Pending() {
			return m, nil
		}
		m.suggestion = -1
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetInput(m.input.Value())
	return m, cmd
}

// submit hands the input to the session. Rejected sends leave everything
// as it was.
func (m Model) submit() (tea.Model, tea.Cmd) {
	send, ok := m.session.BeginSend(m.input.Value())
	if !ok {
		return m, nil
	}
	m.input.SetValue("")
	m.errMsg = ""
	m.suggestion = -1
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, awaitSend(m.ctx, send))
}

// cycleSuggestion fills the input with the next starter while the log is
// empty.
func (m *Model) cycleSuggestion() {
	if m.session.Pending() || len(m.session.Messages()) > 0 || m.session.State() != convsvc.StateReady {
		return
	}
	m.suggestion = (m.suggestion + 1) % len(convsvc.Suggestions)
	m.input.SetValue(convsvc.Suggestions[m.suggestion])
	m.input.CursorEnd()
	m.session.SetInput(m.input.Value())
}

func (m *Model) refresh() {
	m.vp.SetContent(m.renderLog())
	m.vp.GotoBottom()
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n")
	sb.WriteString(m.vp.View())
	sb.WriteString("\n")
	if m.errMsg != "" {
		sb.WriteString(errorStyle.Render(m.errMsg))
	}
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(faint.Render("Enter to send • Tab for a suggestion • Esc to go back"))
	return sb.String()
}

func (m Model) header() string {
	av, ok := m.session.Avatar()
	if !ok {
		return headerStyle.Width(m.width).Render(faint.Render("Loading conversation…"))
	}
	relation := av.Relationship
	if relation == "" {
		relation = "Avatar"
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		nameStyle.Render(av.Name), "  ",
		relationStyle.Render(relation+" • "), onlineStyle.Render("Online"),
	)
	return headerStyle.Width(m.width).Render(line)
}

func (m Model) renderLog() string {
	switch m.session.State() {
	case convsvc.StateUninitialized, convsvc.StateLoading:
		return m.spinner.View() + " " + faint.Render("Loading…")
	case convsvc.StateFailed:
		return ""
	}

	av, _ := m.session.Avatar()
	msgs := m.session.Messages()
	indicator := m.session.Indicator()

	var sb strings.Builder
	if len(msgs) == 0 && !indicator.Visible {
		sb.WriteString(emptyState(av))
	}
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderMessage(av, msg))
	}
	if indicator.Visible {
		if len(msgs) > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.spinner.View() + " " + italic.Render(indicator.Label))
	}
	return sb.String()
}

func (m Model) renderMessage(av avatar.Avatar, msg conversation.Message) string {
	stamp := ""
	if !msg.CreatedAt.IsZero() {
		stamp = " " + timeStyle.Render(msg.CreatedAt.Local().Format("15:04"))
	}
	if msg.SenderType == conversation.SenderUser {
		return userLabel.Render("You") + stamp + "\n" + msg.TextContent
	}
	return avatarLabel.Render(av.Name) + stamp + "\n" + m.render(msg.TextContent)
}

func emptyState(av avatar.Avatar) string {
	intro := fmt.Sprintf("Start a conversation with %s", av.Name)
	if av.Description != "" {
		intro = fmt.Sprintf("%q", truncate(av.Description, descriptionMax)+"...")
	}

	chips := make([]string, 0, len(convsvc.Suggestions))
	for _, s := range convsvc.Suggestions {
		chips = append(chips, chipStyle.Render(s))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		nameStyle.Render(av.Name),
		italic.Render(intro),
		lipgloss.JoinHorizontal(lipgloss.Top, chips...),
	)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func initMessage(err error) string {
	if errors.Is(err, convsvc.ErrAvatarNotReady) {
		return "This avatar is still a draft and cannot chat yet"
	}
	return apperr.UserMessage(err, msgLoadFailed)
}

var _ tea.Model = Model{}
