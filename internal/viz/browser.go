package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/storage"
)

const (
	stateList = iota
	stateDetail
)

// RunSource is the part of storage.Store the browser reads.
type RunSource interface {
	List() ([]storage.RunMetadata, error)
	LoadResponses(runID string) ([]response.Sampled, error)
}

type browser struct {
	state, cursor int
	source        RunSource
	runs          []storage.RunMetadata
	responses     []response.Sampled
	plotted       int
	err           error
	width, height int
}

func NewBrowser(source RunSource) *browser {
	return &browser{source: source, width: 80, height: 24}
}

type runsLoaded struct {
	runs []storage.RunMetadata
	err  error
}

type responsesLoaded struct {
	responses []response.Sampled
	err       error
}

func (m browser) Init() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.source.List()
		return runsLoaded{runs: runs, err: err}
	}
}

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoaded:
		m.runs, m.err = msg.runs, msg.err
	case responsesLoaded:
		m.responses, m.err = msg.responses, msg.err
		m.plotted = 0
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m browser) handleKey(msg tea.KeyMsg) (browser, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "t":
		SetTheme(nextTheme(CurrentTheme.Name))
		return m, nil
	}
	switch m.state {
	case stateList:
		return m.listKey(msg)
	case stateDetail:
		return m.detailKey(msg)
	}
	return m, nil
}

func (m browser) listKey(msg tea.KeyMsg) (browser, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.runs)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.runs) == 0 {
			return m, nil
		}
		m.state, m.responses, m.err = stateDetail, nil, nil
		id, source := m.runs[m.cursor].ID, m.source
		return m, func() tea.Msg {
			resps, err := source.LoadResponses(id)
			return responsesLoaded{responses: resps, err: err}
		}
	}
	return m, nil
}

func (m browser) detailKey(msg tea.KeyMsg) (browser, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "h":
		m.state = stateList
	case "tab", "l":
		if len(m.responses) > 0 {
			m.plotted = (m.plotted + 1) % len(m.responses)
		}
	}
	return m, nil
}

func (m browser) View() string {
	switch m.state {
	case stateDetail:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m browser) viewList() string {
	var b strings.Builder
	b.WriteString("\n  " + GradientText("CTRLKIT", CurrentTheme.Primary, CurrentTheme.Accent) + "\n")
	b.WriteString("  " + Subtle.Render("stored runs · "+formatCount(len(m.runs), "run")) + "\n")
	b.WriteString("  " + Separator(40) + "\n\n")

	if m.err != nil {
		b.WriteString("  " + Warning.Render(m.err.Error()) + "\n")
	}
	if len(m.runs) == 0 && m.err == nil {
		b.WriteString("  " + Muted.Render("no runs found") + "\n")
	}
	for i, run := range m.runs {
		line := fmt.Sprintf("%-28s %-12s %s", run.ID, run.Exercise, run.Timestamp.Format("2006-01-02 15:04"))
		if i == m.cursor {
			b.WriteString("  " + Selected.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("    " + Label.Render(line) + "\n")
		}
	}
	b.WriteString("\n  " + hints("j/k", "navigate", "enter", "open", "t", "theme", "q", "quit") + "\n")
	return b.String()
}

func (m browser) viewDetail() string {
	if m.cursor >= len(m.runs) {
		return ""
	}
	run := m.runs[m.cursor]
	var b strings.Builder
	b.WriteString("\n" + RenderMetadata(run) + "\n")

	switch {
	case m.err != nil:
		b.WriteString(Warning.Render(m.err.Error()) + "\n")
	case m.responses == nil:
		b.WriteString(Muted.Render("loading responses...") + "\n")
	case len(m.responses) > 0:
		for i, r := range m.responses {
			name := fmt.Sprintf("%-20s", r.Name)
			if i == m.plotted {
				name = Selected.Render(name)
			} else {
				name = Label.Render(name)
			}
			b.WriteString(name + " " + Sparkline(r.Amplitude, 30) + "\n")
		}
		opts := DefaultPlotOptions()
		opts.Width = max(20, min(m.width-12, 100))
		opts.Caption = m.responses[m.plotted].Name
		b.WriteString("\n" + Plot(opts, m.responses[m.plotted]) + "\n")
	}
	b.WriteString("\n" + hints("tab", "next response", "esc", "back", "q", "quit") + "\n")
	return b.String()
}

func hints(pairs ...string) string {
	key := lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Primary)
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, key.Render(pairs[i])+" "+KeyHint.Render(pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

// RunBrowser starts the interactive run browser in the alternate screen.
func RunBrowser(source RunSource) error {
	_, err := tea.NewProgram(NewBrowser(source), tea.WithAltScreen()).Run()
	return err
}
