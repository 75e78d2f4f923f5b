// Package render turns a process flow into text: a Markdown SOP document
// and a styled terminal outline.
package render

import (
	"fmt"
	"strings"

	"sopflow/internal/types"
)

// Markdown renders flow as a Standard Operating Procedure document. The
// output is deterministic for a given flow.
func Markdown(flow *types.ProcessFlow) string {
	if flow == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDefault(flow.ProcessName, "Untitled Process"))
	if flow.Version != "" {
		fmt.Fprintf(&b, "**Version:** %s\n\n", flow.Version)
	}
	if flow.Description != "" {
		fmt.Fprintf(&b, "## Purpose\n\n%s\n\n", flow.Description)
	}
	if roles := types.Roles(flow); len(roles) > 0 {
		b.WriteString("## Roles\n\n")
		for _, r := range roles {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Procedure\n\n")
	for i, sp := range flow.SubProcesses {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, sp.Name)
		if sp.Description != "" && sp.Description != sp.Name {
			fmt.Fprintf(&b, "%s\n\n", sp.Description)
		}
		for j, t := range sp.Tasks {
			fmt.Fprintf(&b, "#### %d.%d %s\n\n", i+1, j+1, t.Name)
			if t.Description != "" && t.Description != t.Name {
				fmt.Fprintf(&b, "%s\n\n", t.Description)
			}
			for k, s := range t.Steps {
				fmt.Fprintf(&b, "%d. **%s**", k+1, s.Name)
				if s.ResponsibleRole != "" {
					fmt.Fprintf(&b, " (%s)", s.ResponsibleRole)
				}
				if s.Description != "" {
					fmt.Fprintf(&b, ": %s", s.Description)
				}
				b.WriteString("\n")
				fmt.Fprintf(&b, "   - Automation potential: %s\n", s.AutomationPotential)
				if s.AutomationSuggestion != "" {
					fmt.Fprintf(&b, "   - Automation note: %s\n", s.AutomationSuggestion)
				}
			}
			b.WriteString("\n")
		}
	}
	if summary := automationSummary(flow); summary != "" {
		b.WriteString("## Automation Summary\n\n")
		b.WriteString(summary)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func automationSummary(flow *types.ProcessFlow) string {
	counts := make(map[types.AutomationPotential]int)
	total := 0
	for _, sp := range flow.SubProcesses {
		for _, t := range sp.Tasks {
			for _, s := range t.Steps {
				counts[s.AutomationPotential]++
				total++
			}
		}
	}
	if total == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range types.AutomationPotentials() {
		fmt.Fprintf(&b, "- %s: %d of %d steps\n", p, counts[p], total)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
