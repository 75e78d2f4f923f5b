package flowstore

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopflow/internal/llm"
	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// scripted delegates to the offline provider unless a hook overrides the
// operation.
type scripted struct {
	llm.FakeProvider
	analyze  func(ctx context.Context, src llm.Source) (*types.ProcessFlow, error)
	refine   func(ctx context.Context, history []types.ChatMessage, flow *types.ProcessFlow) (*llm.Refinement, error)
	enrich   func(ctx context.Context, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error)
	document func(ctx context.Context, flow *types.ProcessFlow) (string, error)
}

func (p *scripted) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src llm.Source) (*types.ProcessFlow, error) {
	if p.analyze != nil {
		return p.analyze(ctx, src)
	}
	return p.FakeProvider.GenerateInitialFlow(ctx, cfg, src)
}

func (p *scripted) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*llm.Refinement, error) {
	if p.refine != nil {
		return p.refine(ctx, history, flow)
	}
	return p.FakeProvider.RefineFlow(ctx, cfg, history, flow)
}

func (p *scripted) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	if p.enrich != nil {
		return p.enrich(ctx, flow, taskID, description)
	}
	return p.FakeProvider.EnrichStep(ctx, cfg, flow, taskID, description)
}

func (p *scripted) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	if p.document != nil {
		return p.document(ctx, flow)
	}
	return p.FakeProvider.GenerateDocument(ctx, cfg, flow)
}

func newStore(p llm.Provider) *Store {
	return New(p, settings.NewStaticManager(settings.Default()))
}

func analyzed(t *testing.T, p llm.Provider) *Store {
	t.Helper()
	s := newStore(p)
	require.NoError(t, s.Analyze(context.Background(), llm.Source{Text: types.SampleSOP}))
	return s
}

func lastMessage(s *Store) types.ChatMessage {
	tr := s.Snapshot().Transcript
	if len(tr) == 0 {
		return types.ChatMessage{}
	}
	return tr[len(tr)-1]
}

func TestAnalyze(t *testing.T) {
	var during Loading
	var s *Store
	p := &scripted{}
	p.analyze = func(ctx context.Context, src llm.Source) (*types.ProcessFlow, error) {
		during = s.Snapshot().Loading
		return p.FakeProvider.GenerateInitialFlow(ctx, settings.Default(), src)
	}
	s = newStore(p)

	require.NoError(t, s.Analyze(context.Background(), llm.Source{Text: types.SampleSOP}))
	assert.True(t, during.Flow)

	snap := s.Snapshot()
	assert.Equal(t, Loading{}, snap.Loading)
	require.NotNil(t, snap.Flow)
	assert.Equal(t, "New Employee Onboarding", snap.Flow.ProcessName)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, types.RoleModel, snap.Transcript[0].Role)
	assert.Contains(t, snap.Transcript[0].Content, "I've analyzed the document")
}

func TestAnalyzeResetsSession(t *testing.T) {
	s := analyzed(t, &scripted{})
	require.NoError(t, s.Refine(context.Background(), "HR also orders a chair."))
	require.NoError(t, s.RenderDocument(context.Background()))

	require.NoError(t, s.Analyze(context.Background(), llm.Source{Text: "Close the till\nCount the cash."}))
	snap := s.Snapshot()
	assert.Len(t, snap.Transcript, 1)
	assert.Empty(t, snap.Document)
	assert.Equal(t, "Close the till", snap.Flow.ProcessName)
}

func TestAnalyzeFailure(t *testing.T) {
	boom := &llm.TransportError{Provider: "azure", Status: http.StatusBadGateway, Body: "upstream down"}
	s := newStore(&scripted{analyze: func(context.Context, llm.Source) (*types.ProcessFlow, error) { return nil, boom }})

	err := s.Analyze(context.Background(), llm.Source{Text: "x"})
	var te *llm.TransportError
	require.ErrorAs(t, err, &te)

	snap := s.Snapshot()
	assert.Nil(t, snap.Flow)
	assert.False(t, snap.Loading.Flow)
	msg := lastMessage(s)
	assert.Equal(t, types.RoleModel, msg.Role)
	assert.Contains(t, msg.Content, "error")
	assert.Contains(t, msg.Content, "upstream down")
}

func TestAnalyzeWithoutSource(t *testing.T) {
	s := newStore(&scripted{})
	err := s.Analyze(context.Background(), llm.Source{Text: "  "})
	assert.ErrorIs(t, err, llm.ErrNoSource)
	assert.Contains(t, lastMessage(s).Content, "no document source provided")
}

func TestRefine(t *testing.T) {
	var gotHistory []types.ChatMessage
	p := &scripted{}
	p.refine = func(_ context.Context, history []types.ChatMessage, flow *types.ProcessFlow) (*llm.Refinement, error) {
		gotHistory = history
		next := flow.Clone()
		next.ProcessName = "Onboarding v2"
		return &llm.Refinement{UpdatedFlow: next, AIResponse: "Renamed. Anything else?"}, nil
	}
	s := analyzed(t, p)

	require.NoError(t, s.Refine(context.Background(), "Rename it to Onboarding v2"))
	require.Len(t, gotHistory, 2)
	assert.Equal(t, types.UserMessage("Rename it to Onboarding v2"), gotHistory[1])

	snap := s.Snapshot()
	assert.Equal(t, "Onboarding v2", snap.Flow.ProcessName)
	assert.Equal(t, types.ModelMessage("Renamed. Anything else?"), snap.Transcript[len(snap.Transcript)-1])
	assert.False(t, snap.Loading.Chat)
}

func TestRefineFailureKeepsTree(t *testing.T) {
	p := &scripted{}
	s := analyzed(t, p)
	before := s.Snapshot().Flow

	p.refine = func(context.Context, []types.ChatMessage, *types.ProcessFlow) (*llm.Refinement, error) {
		return nil, &llm.ParseError{Raw: "oops", Err: errors.New("invalid character 'o'")}
	}
	err := s.Refine(context.Background(), "Split step 2")
	var pe *llm.ParseError
	require.ErrorAs(t, err, &pe)

	snap := s.Snapshot()
	assert.Equal(t, before, snap.Flow)
	assert.False(t, snap.Loading.Chat)
	n := len(snap.Transcript)
	assert.Equal(t, types.UserMessage("Split step 2"), snap.Transcript[n-2])
	assert.Contains(t, snap.Transcript[n-1].Content, "could not parse")
}

func TestOperationsWithoutFlow(t *testing.T) {
	s := newStore(&scripted{})
	ctx := context.Background()
	assert.ErrorIs(t, s.Refine(ctx, "hello"), llm.ErrNoFlow)
	assert.ErrorIs(t, s.AddStep(ctx, "task_1_1", "x"), llm.ErrNoFlow)
	assert.ErrorIs(t, s.RenderDocument(ctx), llm.ErrNoFlow)
	assert.False(t, s.UpdateStep(types.Step{ID: "step_1_1_1"}))
	assert.False(t, s.Reorder(types.ReorderStep, "task_1_1", 0, "task_1_1", 1))

	snap := s.Snapshot()
	assert.Equal(t, Loading{}, snap.Loading)
	assert.Len(t, snap.Transcript, 4)

	var de *llm.DomainError
	assert.ErrorAs(t, s.Refine(ctx, "   "), &de)
}

func TestAddStep(t *testing.T) {
	s := analyzed(t, &scripted{})
	require.NoError(t, s.AddStep(context.Background(), "task_2_3", "The hiring manager books a team lunch."))

	snap := s.Snapshot()
	steps := snap.Flow.SubProcesses[1].Tasks[2].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, "step_2_3_3", steps[2].ID)
	assert.Contains(t, lastMessage(s).Content, "I've added the new step")
	assert.Contains(t, lastMessage(s).Content, steps[2].Name)
	assert.False(t, snap.Loading.Chat)

	err := s.AddStep(context.Background(), "task_9_9", "x")
	require.Error(t, err)
	assert.Equal(t, snap.Flow, s.Snapshot().Flow)
}

func TestAddStepUnknownTaskSkipsProvider(t *testing.T) {
	called := false
	p := &scripted{}
	p.enrich = func(context.Context, *types.ProcessFlow, string, string) (*types.ProcessFlow, error) {
		called = true
		return nil, errors.New("unexpected call")
	}
	s := analyzed(t, p)
	before := s.Snapshot()

	err := s.AddStep(context.Background(), "task_9_9", "The hiring manager books a team lunch.")
	var de *llm.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Msg, "task_9_9")
	assert.False(t, called)

	after := s.Snapshot()
	assert.Equal(t, before.Flow, after.Flow)
	assert.False(t, after.Loading.Chat)
	assert.Len(t, after.Transcript, len(before.Transcript)+1)
	assert.Contains(t, lastMessage(s).Content, "task_9_9")
}

func TestRenderAndClearDocument(t *testing.T) {
	s := analyzed(t, &scripted{})
	require.NoError(t, s.RenderDocument(context.Background()))
	snap := s.Snapshot()
	assert.True(t, strings.HasPrefix(snap.Document, "# New Employee Onboarding"))
	assert.False(t, snap.Loading.Doc)

	s.ClearDocument()
	assert.Empty(t, s.Snapshot().Document)
}

func TestRenderDocumentFailure(t *testing.T) {
	p := &scripted{}
	s := analyzed(t, p)
	p.document = func(context.Context, *types.ProcessFlow) (string, error) {
		return "", &llm.ConfigurationError{Provider: "Ollama", Msg: "base URL and model are required"}
	}
	require.Error(t, s.RenderDocument(context.Background()))
	snap := s.Snapshot()
	assert.Empty(t, snap.Document)
	assert.False(t, snap.Loading.Doc)
	assert.Contains(t, lastMessage(s).Content, "Ollama is not configured")
}

func TestUpdateStep(t *testing.T) {
	s := analyzed(t, &scripted{})
	before := s.Snapshot()
	step := before.Flow.SubProcesses[0].Tasks[1].Steps[0]
	step.Name = "Open IT ticket"
	step.AutomationPotential = types.PotentialHigh

	require.True(t, s.UpdateStep(step))
	after := s.Snapshot()
	assert.Equal(t, step, after.Flow.SubProcesses[0].Tasks[1].Steps[0])
	assert.Equal(t, `I've updated the step: "Open IT ticket". Is there anything else you'd like to change?`, lastMessage(s).Content)

	assert.False(t, s.UpdateStep(types.Step{ID: "missing", Name: "x"}))
	assert.Equal(t, after, s.Snapshot())
}

func TestReorder(t *testing.T) {
	s := analyzed(t, &scripted{})
	orig := s.Snapshot().Flow.SubProcesses[0].Tasks[0].Steps

	require.True(t, s.Reorder(types.ReorderStep, "task_1_1", 0, "task_1_1", 2))
	got := s.Snapshot().Flow.SubProcesses[0].Tasks[0].Steps
	assert.Equal(t, []types.Step{orig[1], orig[2], orig[0]}, got)

	rev := s.Snapshot().Revision
	assert.False(t, s.Reorder(types.ReorderStep, "task_1_1", 0, "task_1_2", 0))
	assert.Equal(t, rev, s.Snapshot().Revision)
}

func TestSubscribe(t *testing.T) {
	s := newStore(&scripted{})
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)

	first := <-ch
	assert.Nil(t, first.Flow)

	require.NoError(t, s.Analyze(context.Background(), llm.Source{Text: types.SampleSOP}))
	var last Snapshot
	timeout := time.After(2 * time.Second)
	for last.Flow == nil || last.Loading.Flow {
		select {
		case last = <-ch:
		case <-timeout:
			t.Fatal("no settled snapshot received")
		}
	}
	assert.Equal(t, s.Snapshot(), last)

	cancel()
	for range ch {
	}
}

func TestLastWriteWins(t *testing.T) {
	p := &scripted{}
	s := analyzed(t, p)

	release := map[string]chan struct{}{"first": make(chan struct{}), "second": make(chan struct{})}
	p.refine = func(_ context.Context, history []types.ChatMessage, flow *types.ProcessFlow) (*llm.Refinement, error) {
		tag := history[len(history)-1].Content
		<-release[tag]
		next := flow.Clone()
		next.ProcessName = tag
		return &llm.Refinement{UpdatedFlow: next, AIResponse: "done " + tag}, nil
	}

	var wg sync.WaitGroup
	for _, tag := range []string{"first", "second"} {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			assert.NoError(t, s.Refine(context.Background(), tag))
		}(tag)
	}
	require.Eventually(t, func() bool {
		n := 0
		for _, m := range s.Snapshot().Transcript {
			if m.Role == types.RoleUser {
				n++
			}
		}
		return n == 2
	}, 2*time.Second, 5*time.Millisecond)

	close(release["second"])
	require.Eventually(t, func() bool { return lastMessage(s).Content == "done second" }, 2*time.Second, 5*time.Millisecond)
	close(release["first"])
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, "first", snap.Flow.ProcessName)
	assert.Equal(t, "done first", snap.Transcript[len(snap.Transcript)-1].Content)
	assert.False(t, snap.Loading.Chat)
}
