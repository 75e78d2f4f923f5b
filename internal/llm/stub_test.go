package llm

import (
	"context"
	"sync"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// stubProvider records calls and replays queued errors before succeeding.
type stubProvider struct {
	name  string
	files bool

	mu    sync.Mutex
	calls []string
	errs  []error
	flow  *types.ProcessFlow
}

func (s *stubProvider) Name() string        { return s.name }
func (s *stubProvider) SupportsFiles() bool { return s.files }

func (s *stubProvider) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func (s *stubProvider) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubProvider) GenerateInitialFlow(ctx context.Context, _ settings.AiConfig, _ Source) (*types.ProcessFlow, error) {
	if err := s.record(OpAnalyze); err != nil {
		return nil, err
	}
	return s.flow, nil
}

func (s *stubProvider) RefineFlow(ctx context.Context, _ settings.AiConfig, _ []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	if err := s.record(OpRefine); err != nil {
		return nil, err
	}
	return &Refinement{UpdatedFlow: flow, AIResponse: "ok"}, nil
}

func (s *stubProvider) EnrichStep(ctx context.Context, _ settings.AiConfig, flow *types.ProcessFlow, _, _ string) (*types.ProcessFlow, error) {
	if err := s.record(OpEnrich); err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *stubProvider) GenerateDocument(ctx context.Context, _ settings.AiConfig, _ *types.ProcessFlow) (string, error) {
	if err := s.record(OpDocument); err != nil {
		return "", err
	}
	if ctx.Value(ctxKeyBlock{}) != nil {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "# doc", nil
}

type ctxKeyBlock struct{}

// withBlock makes GenerateDocument wait for ctx to end.
func withBlock(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyBlock{}, true)
}

func tinyFlow() *types.ProcessFlow {
	return &types.ProcessFlow{
		ProcessName: "Expense Claims",
		Description: "Reimburse employee expenses.",
		Version:     "1.0",
		SubProcesses: []types.SubProcess{{
			ID: "sp_1", Name: "Submission", Description: "Employee submits",
			Tasks: []types.Task{{
				ID: "task_1_1", Name: "Submit claim", Description: "Fill in the form",
				Steps: []types.Step{
					{ID: "step_1_1_1", Name: "Attach receipts", Description: "Upload receipts", AutomationPotential: types.PotentialMedium, ResponsibleRole: "Employee"},
				},
			}},
		}},
	}
}
