package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sopflow/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	subProcessStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	taskStyle       = lipgloss.NewStyle().Bold(true)
	roleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	potentialStyles = map[types.AutomationPotential]lipgloss.Style{
		types.PotentialHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		types.PotentialMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		types.PotentialLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		types.PotentialNone:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

// Tree renders flow as an indented outline for the terminal. Colors are
// dropped automatically when the output is not a TTY.
func Tree(flow *types.ProcessFlow) string {
	if flow == nil {
		return mutedStyle.Render("(no process flow)")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(orDefault(flow.ProcessName, "Untitled Process")))
	if flow.Version != "" {
		b.WriteString(" " + mutedStyle.Render("v"+flow.Version))
	}
	b.WriteString("\n")
	if flow.Description != "" {
		b.WriteString(mutedStyle.Render(flow.Description) + "\n")
	}
	for _, sp := range flow.SubProcesses {
		b.WriteString("\n" + subProcessStyle.Render(sp.Name) + " " + mutedStyle.Render("["+sp.ID+"]") + "\n")
		for ti, t := range sp.Tasks {
			branch, indent := "├─", "│  "
			if ti == len(sp.Tasks)-1 {
				branch, indent = "└─", "   "
			}
			b.WriteString(branch + " " + taskStyle.Render(t.Name) + " " + mutedStyle.Render("["+t.ID+"]") + "\n")
			for si, s := range t.Steps {
				leaf := "├─"
				if si == len(t.Steps)-1 {
					leaf = "└─"
				}
				fmt.Fprintf(&b, "%s%s %s %s", indent, leaf, s.Name, Potential(s.AutomationPotential))
				if s.ResponsibleRole != "" {
					b.WriteString(" " + roleStyle.Render("("+s.ResponsibleRole+")"))
				}
				b.WriteString("\n")
			}
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Potential renders an automation level as a colored badge.
func Potential(p types.AutomationPotential) string {
	st, ok := potentialStyles[p]
	if !ok {
		st = mutedStyle
	}
	return st.Render("[" + string(p) + "]")
}

// Transcript renders chat messages one per line with the speaker in front.
func Transcript(history []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		speaker := "You"
		if m.Role == types.RoleModel {
			speaker = "AI"
		}
		b.WriteString(taskStyle.Render(speaker+":") + " " + m.Content + "\n")
	}
	return b.String()
}
