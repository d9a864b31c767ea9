package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/socratic-labs/internal/domain"
)

const panelWidth = 72

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#d9a441")).
			Padding(0, 1).
			Width(panelWidth)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d9a441")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b93a7"))

	fallacyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06c75")).
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#61afef")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06c75"))
)

// terminalDisplay renders a turn to the terminal: the critic's verdict in a
// side panel, then the Socratic reply as markdown.
type terminalDisplay struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newTerminalDisplay(out io.Writer, styled bool) *terminalDisplay {
	d := &terminalDisplay{out: out}
	if styled {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(panelWidth+4),
		)
		if err == nil {
			d.renderer = renderer
		}
	}
	return d
}

// ShowUser is a no-op: the statement is already on screen where it was typed.
func (d *terminalDisplay) ShowUser(string, string) {}

func (d *terminalDisplay) ShowVerdict(_ string, v domain.Verdict) {
	fmt.Fprintln(d.out, renderVerdictPanel(v))
}

func (d *terminalDisplay) ShowReply(_ string, text string) {
	fmt.Fprintln(d.out, speakerStyle.Render("Socrates:"))
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(text); err == nil {
			fmt.Fprint(d.out, rendered)
			return
		}
	}
	fmt.Fprintln(d.out, text)
	fmt.Fprintln(d.out)
}

func (d *terminalDisplay) showError(msg string) {
	fmt.Fprintln(d.out, errorStyle.Render(msg))
}

func renderVerdictPanel(v domain.Verdict) string {
	fallacy := v.IdentifiedFallacy
	if fallacy == "" {
		fallacy = domain.NoFallacy
	}

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Critic's Analysis"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Fallacy: ") + fallacyStyle.Render(fallacy) + "\n")
	b.WriteString(labelStyle.Render("Reasoning: ") + v.Reasoning + "\n")
	b.WriteString(labelStyle.Render("Strategy: ") + v.AdversarialStrategy + "\n")
	b.WriteString(labelStyle.Render("Thought experiment: ") + v.ThoughtExperimentIdea)
	return panelStyle.Render(b.String())
}
