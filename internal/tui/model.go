package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/session"
)

// Banner describes the indexed document shown above the answer area.
type Banner struct {
	Source     string
	Store      string
	Collection string
	Model      string
	Chunks     int
	Summary    string
}

// Model is the Bubble Tea model for the interactive chat. Each Enter press
// hands one line to the session machine; the blocking call keeps questions
// strictly one at a time.
type Model struct {
	ctx      context.Context
	machine  *session.Machine
	banner   Banner
	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// New creates the TUI over a started session machine.
func New(ctx context.Context, machine *session.Machine, banner Banner) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask a question, or 'stats', 'quit'"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		machine:  machine,
		banner:   banner,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Indexed %d chunks. Ask away.", banner.Chunks),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		headerLines := 2 // title + document line
		if m.banner.Summary != "" {
			headerLines++
		}
		reserved := headerLines + 1 + qh + 1 // status + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.machine.Terminate()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.dispatch(m.input.Value())
		case "up":
			m.viewport.LineUp(3)
			return m, nil
		case "down":
			m.viewport.LineDown(3)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) dispatch(line string) (tea.Model, tea.Cmd) {
	m.input.SetValue("")
	res := m.machine.Handle(m.ctx, line)
	switch res.Kind {
	case session.Quit:
		return m, tea.Quit
	case session.Stats:
		m.viewport.SetContent(renderStats(res))
		m.viewport.GotoTop()
		m.status = "Collection statistics"
	case session.Answered:
		m.viewport.SetContent(renderAnswer(strings.TrimSpace(line), res))
		m.viewport.GotoTop()
		switch {
		case res.LogErr != nil:
			m.status = warnStyle.Render("Warning: query log write failed: " + res.LogErr.Error())
		case res.Answer.Failed:
			m.status = warnStyle.Render("Backend error; session continues")
		default:
			m.status = answerStatus(res)
		}
	}
	return m, nil
}

// View renders the banner, answer area, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("docrag") + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s | %s/%s | %d chunks | model %s",
		m.banner.Source, m.banner.Store, m.banner.Collection, m.banner.Chunks, m.banner.Model)) + "\n")
	if m.banner.Summary != "" {
		b.WriteString(dimStyle.Render(m.banner.Summary) + "\n")
	}
	b.WriteString(answerBoxStyle.Render(m.viewport.View()) + "\n")
	b.WriteString(queryBoxStyle.Render(m.input.View()) + "\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func renderAnswer(question string, res session.Result) string {
	return questionStyle.Render("Q: "+question) + "\n\n" + res.Answer.Text
}

func renderStats(res session.Result) string {
	return fmt.Sprintf("Collection statistics\n\n  total chunks: %d\n  collection:   %s\n  model:        %s",
		res.ChunkCount, res.Collection, res.Model)
}

func answerStatus(res session.Result) string {
	s := fmt.Sprintf("%d chunks | context %d chars | prompt %d chars",
		res.Answer.Retrieved, res.Answer.ContextChars, res.Answer.PromptChars)
	if tel := res.Answer.Telemetry; tel != nil {
		s += fmt.Sprintf(" | tokens %d+%d | %.1fs",
			tel.PromptTokens, tel.ResponseTokens, tel.TotalDuration.Seconds())
	}
	return s
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
