package types

import (
	"fmt"
	"strings"
)

// Validate checks the invariants every flow must satisfy: ids are present and
// unique across the whole tree, and every step carries a known automation
// potential.
func (f *ProcessFlow) Validate() error {
	if f == nil {
		return fmt.Errorf("process flow is nil")
	}
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%s is missing an id", kind)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %q (%s and %s)", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, sp := range f.SubProcesses {
		if err := claim("sub-process", sp.ID); err != nil {
			return err
		}
		for _, t := range sp.Tasks {
			if err := claim("task", t.ID); err != nil {
				return err
			}
			for _, s := range t.Steps {
				if err := claim("step", s.ID); err != nil {
					return err
				}
				if !s.AutomationPotential.Valid() {
					return fmt.Errorf("step %q has invalid automation_potential %q", s.ID, s.AutomationPotential)
				}
			}
		}
	}
	return nil
}

// IDs returns every id in the tree in display order.
func (f *ProcessFlow) IDs() []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, sp := range f.SubProcesses {
		out = append(out, sp.ID)
		for _, t := range sp.Tasks {
			out = append(out, t.ID)
			for _, s := range t.Steps {
				out = append(out, s.ID)
			}
		}
	}
	return out
}

// FindTask returns the task with the given id.
func (f *ProcessFlow) FindTask(taskID string) (Task, bool) {
	if f == nil {
		return Task{}, false
	}
	for _, sp := range f.SubProcesses {
		for _, t := range sp.Tasks {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	return Task{}, false
}

// StepCount counts the leaves of the tree.
func (f *ProcessFlow) StepCount() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, sp := range f.SubProcesses {
		for _, t := range sp.Tasks {
			n += len(t.Steps)
		}
	}
	return n
}
