// Package tui implements the interactive chat screen.
package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/internal/export"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	aiStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

const helpText = "enter send • ctrl+e export • /clear reset • esc quit"

// Options configures the chat screen
type Options struct {
	// ExportFormat is one of json, jsonl, md, yaml
	ExportFormat string
	ExportDir    string
	Now          func() time.Time
	// LogOutput receives log lines while the screen is open. Nil discards
	// them; the terminal belongs to the chat.
	LogOutput io.Writer

	programOptions []tea.ProgramOption
}

type stateMsg internal.State

type sendResultMsg struct {
	accepted bool
}

type exportedMsg struct {
	path string
	err  error
}

// Model is the bubbletea model for the chat screen
type Model struct {
	ctx    context.Context
	store  *internal.Store
	opts   Options
	states <-chan internal.State

	state    internal.State
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	ready    bool
}

// NewModel creates the chat screen. states must deliver every committed
// store state; use Subscribe.
func NewModel(ctx context.Context, store *internal.Store, states <-chan internal.State, opts Options) Model {
	if opts.ExportFormat == "" {
		opts.ExportFormat = "md"
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	input := textinput.New()
	input.Placeholder = "Ask about schemes, savings, loans..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(aiStyle))

	return Model{
		ctx:      ctx,
		store:    store,
		opts:     opts,
		states:   states,
		state:    store.State(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		status:   helpText,
	}
}

// Subscribe bridges store commits into a channel that always holds the
// latest state
func Subscribe(store *internal.Store) (<-chan internal.State, func()) {
	ch := make(chan internal.State, 1)
	unsubscribe := store.Subscribe(func(st internal.State) {
		select {
		case <-ch:
		default:
		}
		ch <- st
	})
	return ch, unsubscribe
}

// Run shows the chat screen until the user quits
func Run(ctx context.Context, store *internal.Store, opts Options) error {
	logOut := opts.LogOutput
	if logOut == nil {
		logOut = io.Discard
	}
	restore := internal.SetLogOutput(logOut)
	defer restore()

	states, unsubscribe := Subscribe(store)
	defer unsubscribe()

	progOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.programOptions...)
	p := tea.NewProgram(NewModel(ctx, store, states, opts), progOpts...)
	_, err := p.Run()
	return err
}

func waitForState(states <-chan internal.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

// Init starts the cursor blink, spinner and state subscription
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForState(m.states))
}

// Update handles input and store updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+e":
			return m, m.exportCmd()
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-5, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()

	case stateMsg:
		m.state = internal.State(msg)
		m.refresh()
		return m, waitForState(m.states)

	case sendResultMsg:
		if !msg.accepted {
			m.status = "Still waiting for the previous reply"
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.status = "Saved " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit handles the enter key
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	switch text {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/export":
		return m, m.exportCmd()
	case "/clear":
		if !m.store.ClearTranscript() {
			m.status = "Nothing to clear"
		}
		return m, nil
	}

	m.status = helpText
	ctx, store := m.ctx, m.store
	return m, func() tea.Msg {
		return sendResultMsg{accepted: store.SendChatMessage(ctx, text)}
	}
}

// exportCmd writes the transcript in the configured format
func (m Model) exportCmd() tea.Cmd {
	st := m.state
	opts := m.opts
	return func() tea.Msg {
		exporter, err := export.NewExporter(opts.ExportFormat)
		if err != nil {
			return exportedMsg{err: err}
		}
		now := opts.Now()
		path := filepath.Join(opts.ExportDir, export.DefaultFileName(exporter, now))
		if err := export.WriteFile(exporter, export.NewTranscript(st, now), path); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(RenderTranscript(m.state.Transcript, m.viewport.Width))
	m.viewport.GotoBottom()
}

// View renders the screen
func (m Model) View() string {
	var b strings.Builder

	who := "guest"
	if m.state.User != nil {
		who = m.state.User.Name
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("Sahayak • %s • %s", who, m.state.Language.DisplayName())))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.state.ChatLoading {
		b.WriteString(m.spinner.View() + " Sahayak is typing...")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

// RenderTranscript formats messages for a terminal of the given width
func RenderTranscript(messages []internal.ChatMessage, width int) string {
	if len(messages) == 0 {
		return statusStyle.Render("Ask anything about government schemes to get started.")
	}

	wrap := lipgloss.NewStyle()
	if width > 4 {
		wrap = wrap.Width(width - 2)
	}

	var b strings.Builder
	for i, msg := range messages {
		label := userStyle.Render("You")
		if msg.Sender == internal.SenderAI {
			label = aiStyle.Render("Sahayak")
		}
		b.WriteString(label)
		if ts := shortTime(msg.Timestamp); ts != "" {
			b.WriteString(" " + timeStyle.Render(ts))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Text))
		if i < len(messages)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.Local().Format("15:04")
}
