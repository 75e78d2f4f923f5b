// Package flowstore holds the working state of one editing session: the
// current process flow, the chat transcript, the last rendered document and
// the loading flags of in-flight model calls.
//
// Model-backed operations never leave a partial tree behind. A failure is
// recorded in the transcript and returned; the tree stays at its last good
// value. Provider calls run without the store lock held, so two calls racing
// on the same tree resolve last-write-wins.
package flowstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sopflow/internal/llm"
	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// ConfigSource yields the provider configuration for the next call.
type ConfigSource interface {
	Current() settings.AiConfig
}

// Flag names a loading indicator.
type Flag string

const (
	FlagFlow Flag = "flow"
	FlagChat Flag = "chat"
	FlagDoc  Flag = "doc"
)

type Loading struct {
	Flow bool `json:"flow"`
	Chat bool `json:"chat"`
	Doc  bool `json:"doc"`
}

func (l *Loading) set(f Flag, v bool) {
	switch f {
	case FlagFlow:
		l.Flow = v
	case FlagChat:
		l.Chat = v
	case FlagDoc:
		l.Doc = v
	}
}

// Snapshot is a copy of the store state. Revision increases with every
// change.
type Snapshot struct {
	Flow       *types.ProcessFlow  `json:"processFlow"`
	Transcript []types.ChatMessage `json:"chatHistory"`
	Document   string              `json:"document"`
	Loading    Loading             `json:"loading"`
	Revision   uint64              `json:"revision"`
}

type Store struct {
	provider llm.Provider
	config   ConfigSource

	mu         sync.Mutex
	flow       *types.ProcessFlow
	transcript []types.ChatMessage
	document   string
	loading    Loading
	revision   uint64
	subs       map[int]chan Snapshot
	nextSub    int
}

func New(provider llm.Provider, config ConfigSource) *Store {
	return &Store{
		provider: provider,
		config:   config,
		subs:     make(map[int]chan Snapshot),
	}
}

// Transcript messages.
const (
	msgAnalyzed = "I've analyzed the document and created an initial process flow. Please review it. You can ask me to make changes, or provide more details about any step."
	msgDocument = "I've generated the final SOP document. You can review and download it from the document view."
)

func failure(action string, err error) string {
	return fmt.Sprintf("Sorry, I encountered an error while %s: %v", action, err)
}

// Analyze replaces the whole session with a flow generated from src. The
// previous flow, transcript and document are cleared before the call.
func (s *Store) Analyze(ctx context.Context, src llm.Source) error {
	if src.Empty() {
		s.appendModel(failure("analyzing the document", llm.ErrNoSource))
		return llm.ErrNoSource
	}
	s.mu.Lock()
	s.flow = nil
	s.transcript = nil
	s.document = ""
	s.loading.set(FlagFlow, true)
	s.changedLocked()
	s.mu.Unlock()
	defer s.clear(FlagFlow)

	flow, err := s.provider.GenerateInitialFlow(ctx, s.config.Current(), src)
	if err == nil && flow == nil {
		err = &llm.ProtocolError{Provider: s.provider.Name(), Msg: "no process flow returned"}
	}
	if err != nil {
		s.appendModel(failure("analyzing the document", err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow = flow.Clone()
	s.transcript = append(s.transcript, types.ModelMessage(msgAnalyzed))
	s.changedLocked()
	return nil
}

// Refine sends message with the transcript so far and adopts the returned
// flow. The user message stays in the transcript even when the call fails.
func (s *Store) Refine(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return &llm.DomainError{Msg: "message is empty"}
	}
	s.mu.Lock()
	if s.flow == nil {
		s.transcript = append(s.transcript, types.UserMessage(message), types.ModelMessage(failure("refining the process", llm.ErrNoFlow)))
		s.changedLocked()
		s.mu.Unlock()
		return llm.ErrNoFlow
	}
	s.transcript = append(s.transcript, types.UserMessage(message))
	history := append([]types.ChatMessage(nil), s.transcript...)
	flow := s.flow.Clone()
	s.loading.set(FlagChat, true)
	s.changedLocked()
	s.mu.Unlock()
	defer s.clear(FlagChat)

	out, err := s.provider.RefineFlow(ctx, s.config.Current(), history, flow)
	if err == nil && (out == nil || out.UpdatedFlow == nil) {
		err = &llm.ProtocolError{Provider: s.provider.Name(), Msg: "no updated flow returned"}
	}
	if err != nil {
		s.appendModel(failure("refining the process", err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow = out.UpdatedFlow.Clone()
	s.transcript = append(s.transcript, types.ModelMessage(out.AIResponse))
	s.changedLocked()
	return nil
}

// AddStep asks the model to append a step described by description to the
// task taskID, inferring its name, role and automation potential.
func (s *Store) AddStep(ctx context.Context, taskID, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return &llm.DomainError{Msg: "step description is empty"}
	}
	s.mu.Lock()
	if s.flow == nil {
		s.transcript = append(s.transcript, types.ModelMessage(failure("adding the step", llm.ErrNoFlow)))
		s.changedLocked()
		s.mu.Unlock()
		return llm.ErrNoFlow
	}
	if _, ok := s.flow.FindTask(taskID); !ok {
		err := &llm.DomainError{Msg: fmt.Sprintf("task %q not found", taskID)}
		s.transcript = append(s.transcript, types.ModelMessage(failure("adding the step", err)))
		s.changedLocked()
		s.mu.Unlock()
		return err
	}
	before := s.flow.Clone()
	s.loading.set(FlagChat, true)
	s.changedLocked()
	s.mu.Unlock()
	defer s.clear(FlagChat)

	after, err := s.provider.EnrichStep(ctx, s.config.Current(), before, taskID, description)
	if err == nil && after == nil {
		err = &llm.ProtocolError{Provider: s.provider.Name(), Msg: "no process flow returned"}
	}
	if err != nil {
		s.appendModel(failure("adding the step", err))
		return err
	}

	msg := "I've added the new step to the process. Let me know if it needs any adjustments."
	if step, ok := types.AppendedStep(before, after, taskID); ok {
		msg = fmt.Sprintf("I've added the new step: %q. Let me know if it needs any adjustments.", step.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow = after.Clone()
	s.transcript = append(s.transcript, types.ModelMessage(msg))
	s.changedLocked()
	return nil
}

// RenderDocument generates the Markdown SOP for the current flow.
func (s *Store) RenderDocument(ctx context.Context) error {
	s.mu.Lock()
	if s.flow == nil {
		s.transcript = append(s.transcript, types.ModelMessage(failure("generating the document", llm.ErrNoFlow)))
		s.changedLocked()
		s.mu.Unlock()
		return llm.ErrNoFlow
	}
	flow := s.flow.Clone()
	s.loading.set(FlagDoc, true)
	s.changedLocked()
	s.mu.Unlock()
	defer s.clear(FlagDoc)

	doc, err := s.provider.GenerateDocument(ctx, s.config.Current(), flow)
	if err != nil {
		s.appendModel(failure("generating the document", err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
	s.transcript = append(s.transcript, types.ModelMessage(msgDocument))
	s.changedLocked()
	return nil
}

// UpdateStep replaces the step with the same id. Unknown ids are ignored and
// reported as false.
func (s *Store) UpdateStep(step types.Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return false
	}
	next, ok := types.UpdateStep(s.flow, step)
	if !ok {
		return false
	}
	s.flow = next
	s.transcript = append(s.transcript, types.ModelMessage(
		fmt.Sprintf("I've updated the step: %q. Is there anything else you'd like to change?", step.Name)))
	s.changedLocked()
	return true
}

// Reorder moves one task or step within its parent. Cross-parent moves and
// out-of-range indexes are ignored and reported as false.
func (s *Store) Reorder(kind types.ReorderKind, sourceParentID string, sourceIndex int, destParentID string, destIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return false
	}
	next, ok := types.Reorder(s.flow, kind, sourceParentID, sourceIndex, destParentID, destIndex)
	if !ok {
		return false
	}
	s.flow = next
	s.changedLocked()
	return true
}

// ClearDocument drops the rendered document.
func (s *Store) ClearDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == "" {
		return
	}
	s.document = ""
	s.changedLocked()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams snapshots, starting with the current one, until ctx is
// done. A slow reader only sees the newest snapshot.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) appendModel(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, types.ModelMessage(content))
	s.changedLocked()
}

func (s *Store) clear(f Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading.set(f, false)
	s.changedLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Flow:       s.flow.Clone(),
		Transcript: append([]types.ChatMessage{}, s.transcript...),
		Document:   s.document,
		Loading:    s.loading,
		Revision:   s.revision,
	}
}

// changedLocked bumps the revision and publishes the new state.
func (s *Store) changedLocked() {
	s.revision++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
