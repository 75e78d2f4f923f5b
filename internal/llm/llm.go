package llm

import (
	"context"
	"strings"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// Attachment is a binary document sent alongside or instead of text. Data is
// base64 on the wire.
type Attachment struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Source is the document an initial analysis starts from.
type Source struct {
	Text string      `json:"text,omitempty"`
	File *Attachment `json:"file,omitempty"`
}

func (s Source) Empty() bool {
	return strings.TrimSpace(s.Text) == "" && (s.File == nil || len(s.File.Data) == 0)
}

// Refinement is the result of one chat round.
type Refinement struct {
	UpdatedFlow *types.ProcessFlow `json:"updatedFlow"`
	AIResponse  string             `json:"aiResponse"`
}

// Provider is one LLM backend. Implementations build their prompts from the
// arguments alone and keep no state between calls.
type Provider interface {
	Name() string
	GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error)
	RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error)
	EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error)
	GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error)
}

// FileCapable is implemented by providers that accept binary attachments.
type FileCapable interface {
	SupportsFiles() bool
}

// SupportsFiles reports whether p accepts attachments.
func SupportsFiles(p Provider) bool {
	fc, ok := p.(FileCapable)
	return ok && fc.SupportsFiles()
}
