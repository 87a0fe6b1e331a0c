// Package picker is the bubbletea model for human-guided steps: navigate
// the archive grid, mark bins, and breed from them.
package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/evoship/evoship/cmd/evoship-cli/internal/runner"
	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/metrics"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Step   key.Binding
	Random key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Step, k.Random, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Step, k.Random, k.Quit},
	}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark bin")),
	Step:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "breed from marked")),
	Random: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "random step")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	feasStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("72"))
	infeasStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

type stepDoneMsg struct {
	elapsed time.Duration
	err     error
}

// Model drives an interactive search session over one wired run.
type Model struct {
	search   *runner.Search
	help     help.Model
	cursor   [2]int
	selected map[[2]int]bool
	gen      int
	stepping bool
	status   string
	errText  string
}

// New creates the picker over an initialized search.
func New(search *runner.Search) Model {
	return Model{
		search:   search,
		help:     help.New(),
		selected: make(map[[2]int]bool),
		status:   "Mark bins with space, then press enter to breed from them.",
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		m.stepping = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.gen++
		m.errText = ""
		m.status = fmt.Sprintf("Generation %d done in %s. Coverage %.1f%%, QD score %.3f.",
			m.gen, msg.elapsed.Round(time.Millisecond),
			100*metrics.Coverage(m.search.Archive, archive.Feasible),
			metrics.QDScore(m.search.Archive))
		m.selected = make(map[[2]int]bool)
		return m, nil

	case tea.KeyMsg:
		if m.stepping {
			return m, nil
		}
		rows, cols := m.search.Archive.Shape()
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor[1] < cols-1 {
				m.cursor[1]++
			}
		case key.Matches(msg, keys.Down):
			if m.cursor[1] > 0 {
				m.cursor[1]--
			}
		case key.Matches(msg, keys.Left):
			if m.cursor[0] > 0 {
				m.cursor[0]--
			}
		case key.Matches(msg, keys.Right):
			if m.cursor[0] < rows-1 {
				m.cursor[0]++
			}
		case key.Matches(msg, keys.Toggle):
			if m.selected[m.cursor] {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = true
			}
		case key.Matches(msg, keys.Step):
			if len(m.selected) == 0 {
				m.errText = "no bins marked"
				return m, nil
			}
			m.stepping = true
			m.status = "Breeding..."
			return m, m.interactiveStep()
		case key.Matches(msg, keys.Random):
			m.stepping = true
			m.status = "Random step..."
			return m, m.randomStep()
		}
	}
	return m, nil
}

func (m Model) interactiveStep() tea.Cmd {
	idxs := make([][2]int, 0, len(m.selected))
	for idx := range m.selected {
		idxs = append(idxs, idx)
	}
	gen := m.gen + 1
	return func() tea.Msg {
		elapsed, err := m.search.Archive.InteractiveStep(context.Background(), idxs, gen)
		return stepDoneMsg{elapsed: elapsed, err: err}
	}
}

func (m Model) randomStep() tea.Cmd {
	gen := m.gen + 1
	return func() tea.Msg {
		start := time.Now()
		err := m.search.Archive.RandStep(context.Background(), gen)
		return stepDoneMsg{elapsed: time.Since(start), err: err}
	}
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("evoship · run %s · generation %d", m.search.RunID, m.gen)))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderGrid())
	sb.WriteByte('\n')
	if m.errText != "" {
		sb.WriteString(errorStyle.Render(m.errText))
	} else {
		sb.WriteString(statusStyle.Render(m.status))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// renderGrid draws each bin as "feasible/infeasible" counts, the cursor
// reversed and marked bins highlighted. The origin sits at the bottom left.
func (m Model) renderGrid() string {
	grid := m.search.Archive.Bins()
	rows, cols := m.search.Archive.Shape()

	var sb strings.Builder
	for j := cols - 1; j >= 0; j-- {
		for i := 0; i < rows; i++ {
			b := grid[i][j]
			nf, ni := b.Len(archive.Feasible), b.Len(archive.Infeasible)
			cell := fmt.Sprintf(" %s/%s ",
				feasStyle.Render(fmt.Sprintf("%2d", nf)),
				infeasStyle.Render(fmt.Sprintf("%-2d", ni)))
			if nf == 0 && ni == 0 {
				cell = emptyStyle.Render(fmt.Sprintf(" %2s %-3s", "·", ""))
			}
			switch {
			case m.cursor == [2]int{i, j}:
				cell = cursorStyle.Render(fmt.Sprintf(" %2d/%-2d ", nf, ni))
			case m.selected[[2]int{i, j}]:
				cell = selectedStyle.Render(fmt.Sprintf("[%2d/%-2d]", nf, ni))
			}
			sb.WriteString(cell)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
