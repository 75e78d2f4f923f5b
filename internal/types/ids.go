package types

import (
	"fmt"
	"strings"
)

// IDAllocator hands out ids that do not collide with any id already in a
// flow. Generated ids follow the "<prefix>_<n>" shape models are shown, e.g.
// step_1_2_4.
type IDAllocator struct {
	used map[string]struct{}
}

// NewIDAllocator reserves every id currently present in f.
func NewIDAllocator(f *ProcessFlow) *IDAllocator {
	a := &IDAllocator{used: make(map[string]struct{})}
	for _, id := range f.IDs() {
		a.Reserve(id)
	}
	return a
}

func (a *IDAllocator) Reserve(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	a.used[id] = struct{}{}
}

// Next returns prefix_n for the smallest n >= start that is unused, and
// reserves it.
func (a *IDAllocator) Next(prefix string, start int) string {
	if start < 1 {
		start = 1
	}
	for n := start; ; n++ {
		candidate := fmt.Sprintf("%s_%d", prefix, n)
		if _, exists := a.used[candidate]; exists {
			continue
		}
		a.used[candidate] = struct{}{}
		return candidate
	}
}

// NextStepID picks an id for a step appended to the task at position
// (subIndex, taskIndex), both 1-based, so the new id reads like its siblings.
func (a *IDAllocator) NextStepID(subIndex, taskIndex, stepCount int) string {
	return a.Next(fmt.Sprintf("step_%d_%d", subIndex, taskIndex), stepCount+1)
}

// TaskPosition returns the 1-based sub-process and task positions of taskID.
func (f *ProcessFlow) TaskPosition(taskID string) (int, int, bool) {
	if f == nil {
		return 0, 0, false
	}
	for i, sp := range f.SubProcesses {
		for j, t := range sp.Tasks {
			if t.ID == taskID {
				return i + 1, j + 1, true
			}
		}
	}
	return 0, 0, false
}
