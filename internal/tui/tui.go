package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Porkelson/dnd-project/internal/command"
	"github.com/Porkelson/dnd-project/internal/engine"
	"github.com/Porkelson/dnd-project/internal/models"
)

const exhaustedText = "You have explored all available events. Try completing some events to unlock more."

type sessionState int

const (
	stateLoading sessionState = iota
	stateEvent
	stateOutcome
	stateExhausted
	stateError
)

// Saver persists the session state after each choice.
type Saver interface {
	SaveState(ctx context.Context, state models.PlayerState) error
}

// SaverFunc adapts a function to [Saver].
type SaverFunc func(ctx context.Context, state models.PlayerState) error

func (f SaverFunc) SaveState(ctx context.Context, state models.PlayerState) error {
	return f(ctx, state)
}

type model struct {
	ctx       context.Context
	state     sessionState
	engine    *engine.Engine
	saver     Saver
	logger    *slog.Logger
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	width     int
	height    int

	event   models.AdventureEvent
	outcome models.EventOutcome
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFD7"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7875F")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// NewModel builds the UI for one session. saver may be nil.
func NewModel(ctx context.Context, eng *engine.Engine, saver Saver, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "Choose by number or name..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	if logger == nil {
		logger = slog.Default()
	}
	return model{
		ctx:       ctx,
		state:     stateLoading,
		engine:    eng,
		saver:     saver,
		logger:    logger,
		textInput: ti,
		viewport:  viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.nextEvent())
}

type eventMsg struct {
	event       models.AdventureEvent
	description string
	ok          bool
}

type outcomeMsg struct {
	outcome models.EventOutcome
	err     error
}

type savedMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state == stateLoading || m.state == stateError {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()
			return m.handleInput(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-6, 0)
		m.viewport.SetContent(m.gameLog)

	case eventMsg:
		if !msg.ok {
			m.state = stateExhausted
			m.appendLog(noticeStyle.Render(exhaustedText))
			m.textInput.Placeholder = "/restart or /quit"
			return m, nil
		}
		m.event = msg.event
		m.state = stateEvent
		header := gameStyle.Bold(true).Render(fmt.Sprintf("%s [%s]", msg.event.Title, msg.event.Category))
		description := gameStyle.Width(m.logWidth()).Render(msg.description)
		m.appendLog(header + "\n\n" + description + "\n\n" + renderChoices(msg.event.Choices))
		m.textInput.Placeholder = "Choose by number or name..."
		return m, nil

	case outcomeMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.outcome = msg.outcome
		m.state = stateOutcome
		labels := make([]string, len(msg.outcome.Choices))
		for i, c := range msg.outcome.Choices {
			labels[i] = c.Text
		}
		description := gameStyle.Width(m.logWidth()).Render(msg.outcome.Description)
		m.appendLog(description + "\n\n" + renderChoices(labels))
		return m, m.save()

	case savedMsg:
		if msg.err != nil {
			m.logger.Warn("save failed", "err", msg.err)
			m.appendLog(noticeStyle.Render("Could not save: " + msg.err.Error()))
		}
		return m, nil
	}

	if m.state != stateLoading && m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleInput(input string) (tea.Model, tea.Cmd) {
	kind, err := command.ParseCommand(input)
	if err != nil {
		m.appendLog(noticeStyle.Render(err.Error()))
		return m, nil
	}
	switch kind {
	case command.Quit:
		return m, tea.Quit
	case command.Restart:
		m.engine.Reset()
		m.gameLog = ""
		m.viewport.SetContent("")
		m.state = stateLoading
		return m, m.nextEvent()
	case command.State:
		m.appendLog(renderStateSummary(m.engine.PlayerState()))
		return m, nil
	case command.Save:
		if m.saver == nil {
			m.appendLog(noticeStyle.Render("Saving is not configured."))
			return m, nil
		}
		m.appendLog(noticeStyle.Render("Saving..."))
		return m, m.save()
	}

	switch m.state {
	case stateEvent:
		idx, err := command.Resolve(input, m.event.Choices)
		if err != nil {
			m.appendLog(noticeStyle.Render(resolveHint(input, err)))
			return m, nil
		}
		m.appendLog(userStyle.Width(m.logWidth()).Render("> " + m.event.Choices[idx]))
		m.state = stateLoading
		return m, m.processChoice(m.event, idx)

	case stateOutcome:
		labels := make([]string, len(m.outcome.Choices))
		for i, c := range m.outcome.Choices {
			labels[i] = c.Text
		}
		idx, err := command.Resolve(input, labels)
		if err != nil {
			m.appendLog(noticeStyle.Render(resolveHint(input, err)))
			return m, nil
		}
		choice := m.outcome.Choices[idx]
		m.appendLog(userStyle.Width(m.logWidth()).Render("> " + choice.Text))
		if err := m.engine.ResolveFollowUp(choice); err != nil {
			m.appendLog(noticeStyle.Render(err.Error()))
			return m, nil
		}
		m.appendLog(gameStyle.Width(m.logWidth()).Render(choice.Outcome))
		m.state = stateLoading
		return m, tea.Batch(m.save(), m.nextEvent())

	case stateExhausted:
		m.appendLog(noticeStyle.Render(exhaustedText))
	}
	return m, nil
}

func resolveHint(input string, err error) string {
	if errors.Is(err, command.ErrAmbiguous) {
		return fmt.Sprintf("%q matches more than one choice. Be more specific.", input)
	}
	return fmt.Sprintf("%q is not one of the choices. Type a number or a choice.", input)
}

func (m *model) appendLog(s string) {
	if m.gameLog != "" {
		m.gameLog += "\n\n"
	}
	m.gameLog += s
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateLoading:
		if m.gameLog == "" {
			s = "\n  The story unfolds... please wait.\n"
			break
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState()),
			"\n"+helpStyle.Render("The story unfolds..."),
		)

	case stateEvent, stateOutcome, stateExhausted:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		help := helpStyle.Render("Commands: /state, /save, /restart, /quit, or type a choice.")

		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	state := m.engine.PlayerState()

	statsTitle := titleStyle.Render("STATS") + "\n"
	stats := fmt.Sprintf("Health: %d/%d\nLevel: %d\nExperience: %d\nGold: %d\n\n",
		state.Stats.Health, state.Stats.MaxHealth, state.Stats.Level, state.Stats.Experience, state.Stats.Gold)

	tagsTitle := titleStyle.Render("PROGRESS") + "\n"
	tags := renderList(state.Tags) + "\n"

	invTitle := titleStyle.Render("INVENTORY") + "\n"
	inventory := renderList(state.Inventory)

	content := statsTitle + stats + tagsTitle + tags + invTitle + inventory

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "(empty)\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return b.String()
}

func renderChoices(labels []string) string {
	var b strings.Builder
	for i, l := range labels {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(choiceStyle.Render(fmt.Sprintf("%d. %s", i+1, l)))
	}
	return b.String()
}

func renderStateSummary(state models.PlayerState) string {
	return fmt.Sprintf("Health %d/%d, level %d, %d xp, %d gold. Tags: %s. Inventory: %s.",
		state.Stats.Health, state.Stats.MaxHealth, state.Stats.Level, state.Stats.Experience, state.Stats.Gold,
		joinOrNone(state.Tags), joinOrNone(state.Inventory))
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func (m model) nextEvent() tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		ev, ok := eng.PickRandom(ctx)
		if !ok {
			return eventMsg{}
		}
		return eventMsg{event: ev, description: eng.Describe(ctx, ev), ok: true}
	}
}

func (m model) processChoice(ev models.AdventureEvent, idx int) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		outcome, err := eng.Process(ctx, ev, idx)
		return outcomeMsg{outcome, err}
	}
}

func (m model) save() tea.Cmd {
	if m.saver == nil {
		return nil
	}
	ctx, saver, state := m.ctx, m.saver, m.engine.PlayerState()
	return func() tea.Msg {
		return savedMsg{saver.SaveState(ctx, state)}
	}
}

// Run starts the terminal UI and blocks until the player quits.
func Run(ctx context.Context, eng *engine.Engine, saver Saver, logger *slog.Logger) error {
	p := tea.NewProgram(NewModel(ctx, eng, saver, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
