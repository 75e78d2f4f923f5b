package types

// Local edits never go through a provider. Each returns a new flow and leaves
// its input untouched; requests that cannot apply return an unchanged copy.

// ReorderKind selects which sibling list a reorder applies to.
type ReorderKind string

const (
	ReorderTask ReorderKind = "task"
	ReorderStep ReorderKind = "step"
)

// Clone deep-copies the flow.
func (f *ProcessFlow) Clone() *ProcessFlow {
	if f == nil {
		return nil
	}
	out := *f
	if f.SubProcesses != nil {
		out.SubProcesses = make([]SubProcess, len(f.SubProcesses))
		for i, sp := range f.SubProcesses {
			out.SubProcesses[i] = sp.clone()
		}
	}
	return &out
}

func (sp SubProcess) clone() SubProcess {
	out := sp
	if sp.Tasks != nil {
		out.Tasks = make([]Task, len(sp.Tasks))
		for i, t := range sp.Tasks {
			out.Tasks[i] = t.clone()
		}
	}
	return out
}

func (t Task) clone() Task {
	out := t
	if t.Steps != nil {
		out.Steps = make([]Step, len(t.Steps))
		copy(out.Steps, t.Steps)
	}
	return out
}

// UpdateStep replaces the step whose id matches step.ID. The second result
// reports whether a step was replaced.
func UpdateStep(f *ProcessFlow, step Step) (*ProcessFlow, bool) {
	out := f.Clone()
	if out == nil {
		return nil, false
	}
	for i := range out.SubProcesses {
		tasks := out.SubProcesses[i].Tasks
		for j := range tasks {
			steps := tasks[j].Steps
			for k := range steps {
				if steps[k].ID == step.ID {
					steps[k] = step
					return out, true
				}
			}
		}
	}
	return out, false
}

// Reorder moves one sibling from sourceIndex to destIndex under the same
// parent. Tasks are addressed by their sub-process id, steps by their task
// id. Moves across parents are not supported and leave the flow unchanged.
func Reorder(f *ProcessFlow, kind ReorderKind, sourceParentID string, sourceIndex int, destParentID string, destIndex int) (*ProcessFlow, bool) {
	out := f.Clone()
	if out == nil || sourceParentID != destParentID {
		return out, false
	}
	switch kind {
	case ReorderTask:
		for i := range out.SubProcesses {
			if out.SubProcesses[i].ID != sourceParentID {
				continue
			}
			tasks, ok := move(out.SubProcesses[i].Tasks, sourceIndex, destIndex)
			if !ok {
				return out, false
			}
			out.SubProcesses[i].Tasks = tasks
			return out, true
		}
	case ReorderStep:
		for i := range out.SubProcesses {
			tasks := out.SubProcesses[i].Tasks
			for j := range tasks {
				if tasks[j].ID != sourceParentID {
					continue
				}
				steps, ok := move(tasks[j].Steps, sourceIndex, destIndex)
				if !ok {
					return out, false
				}
				tasks[j].Steps = steps
				return out, true
			}
		}
	}
	return out, false
}

func move[T any](items []T, from, to int) ([]T, bool) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return items, false
	}
	if from == to {
		return items, true
	}
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, true
}

// AppendedStep compares a flow before and after an enrichment and returns the
// step that was added at the end of taskID, if it carries an id unused before.
func AppendedStep(before, after *ProcessFlow, taskID string) (Step, bool) {
	prev, ok := before.FindTask(taskID)
	if !ok {
		return Step{}, false
	}
	next, ok := after.FindTask(taskID)
	if !ok || len(next.Steps) != len(prev.Steps)+1 {
		return Step{}, false
	}
	added := next.Steps[len(next.Steps)-1]
	for _, id := range before.IDs() {
		if id == added.ID {
			return Step{}, false
		}
	}
	return added, true
}
