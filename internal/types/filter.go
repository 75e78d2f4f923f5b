package types

import (
	"sort"
	"strings"
)

// Criteria narrows a flow to the steps a reader is interested in. Zero
// values match everything; Role "all" is treated as empty.
type Criteria struct {
	Query      string
	Role       string
	Potentials []AutomationPotential
}

func (c Criteria) active() bool {
	return strings.TrimSpace(c.Query) != "" || c.role() != "" || len(c.Potentials) > 0
}

func (c Criteria) role() string {
	r := strings.TrimSpace(c.Role)
	if strings.EqualFold(r, "all") {
		return ""
	}
	return r
}

// Filter returns a pruned copy of f holding only matching steps. Tasks left
// without steps and sub-processes left without tasks are dropped.
func Filter(f *ProcessFlow, c Criteria) *ProcessFlow {
	out := f.Clone()
	if out == nil || !c.active() {
		return out
	}
	q := strings.ToLower(strings.TrimSpace(c.Query))
	role := c.role()

	subs := out.SubProcesses[:0]
	for _, sp := range out.SubProcesses {
		spHit := contains(q, sp.Name, sp.Description)
		tasks := sp.Tasks[:0]
		for _, t := range sp.Tasks {
			tHit := spHit || contains(q, t.Name, t.Description)
			steps := t.Steps[:0]
			for _, s := range t.Steps {
				if role != "" && s.ResponsibleRole != role {
					continue
				}
				if len(c.Potentials) > 0 && !hasPotential(c.Potentials, s.AutomationPotential) {
					continue
				}
				if !tHit && !contains(q, s.Name, s.Description, s.AutomationSuggestion, s.ResponsibleRole) {
					continue
				}
				steps = append(steps, s)
			}
			if len(steps) == 0 {
				continue
			}
			t.Steps = steps
			tasks = append(tasks, t)
		}
		if len(tasks) == 0 {
			continue
		}
		sp.Tasks = tasks
		subs = append(subs, sp)
	}
	out.SubProcesses = subs
	return out
}

// Roles lists the distinct responsible roles in the flow, sorted.
func Roles(f *ProcessFlow) []string {
	if f == nil {
		return nil
	}
	set := map[string]struct{}{}
	for _, sp := range f.SubProcesses {
		for _, t := range sp.Tasks {
			for _, s := range t.Steps {
				if r := strings.TrimSpace(s.ResponsibleRole); r != "" {
					set[r] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func contains(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func hasPotential(list []AutomationPotential, p AutomationPotential) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
