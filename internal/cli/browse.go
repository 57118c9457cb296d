package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/transpile"
)

// Browse list styles
var (
	browseTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	browseDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// conversionPair is one ordered source/target row in the browse list.
// hops is the shortest-path length, 0 when target is unreachable.
type conversionPair struct {
	source format.Format
	target format.Format
	hops   int
}

// pairListModel is the bubbletea model for browsing format pairs and
// previewing the conversion route for a selected pair.
type pairListModel struct {
	pairs    []conversionPair
	cursor   int
	offset   int
	height   int
	selected *conversionPair
}

// newPairListModel enumerates all ordered format pairs in the graph's
// registry, sorted, with the shortest hop count for each reachable pair.
func newPairListModel(g *graph.ConversionGraph) pairListModel {
	formats := g.Registry().Formats()
	pairs := make([]conversionPair, 0, len(formats)*(len(formats)-1))
	for _, s := range formats {
		for _, t := range formats {
			if s == t {
				continue
			}
			p := conversionPair{source: s, target: t}
			if path, err := g.ShortestPath(s, t); err == nil {
				p.hops = len(path)
			}
			pairs = append(pairs, p)
		}
	}
	return pairListModel{pairs: pairs, height: 15}
}

func (m pairListModel) Init() tea.Cmd {
	return nil
}

func (m pairListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.pairs)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			pair := m.pairs[m.cursor]
			if pair.hops == 0 {
				return m, nil
			}
			m.selected = &pair
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m pairListModel) View() string {
	var b strings.Builder

	b.WriteString(browseTitleStyle.Render("Browse Conversions"))
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render("↑/↓ navigate  ⏎ preview route  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.pairs) {
		end = len(m.pairs)
	}

	for i := m.offset; i < end; i++ {
		p := m.pairs[i]
		reachable := p.hops > 0

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		route := "—"
		if reachable {
			route = fmt.Sprintf("%d hop", p.hops)
			if p.hops > 1 {
				route += "s"
			}
		}

		line := fmt.Sprintf("%s%-8s %s %-8s  %s",
			cursor, p.source, iconArrow, p.target, route)

		switch {
		case i == m.cursor && reachable:
			b.WriteString(browseSelectedStyle.Render(line))
		case i == m.cursor:
			b.WriteString(browseDimStyle.Bold(true).Render(line))
		case reachable:
			b.WriteString(browseNormalStyle.Render(line))
		default:
			b.WriteString(browseDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.pairs))))

	return b.String()
}

// graphBrowseCommand creates the "graph browse" subcommand.
func (c *CLI) graphBrowseCommand() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse format pairs and preview conversion routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := transpile.DefaultGraph()
			if err != nil {
				return err
			}

			p := tea.NewProgram(newPairListModel(g))
			finalModel, err := p.Run()
			if err != nil {
				return fmt.Errorf("run browser: %w", err)
			}

			m, ok := finalModel.(pairListModel)
			if !ok || m.selected == nil {
				return nil
			}
			return runGraphCheck(g, m.selected.source, m.selected.target, topN)
		},
	}

	cmd.Flags().IntVarP(&topN, "paths", "n", transpile.DefaultMaxPaths, "number of candidate paths to show")

	return cmd
}
