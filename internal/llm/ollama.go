package llm

import (
	"context"
	"net/http"
	"strings"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// OllamaProvider calls a local Ollama server's /api/chat endpoint.
type OllamaProvider struct {
	http *http.Client
}

func NewOllamaProvider(client *http.Client) *OllamaProvider {
	return &OllamaProvider{http: defaultHTTPClient(client)}
}

func (o *OllamaProvider) Name() string { return string(settings.ProviderOllama) }

type ollamaChatReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format,omitempty"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResp struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (o *OllamaProvider) validate(cfg settings.AiConfig) error {
	if strings.TrimSpace(cfg.Ollama.BaseURL) == "" || strings.TrimSpace(cfg.Ollama.Model) == "" {
		return &ConfigurationError{Provider: "Ollama", Msg: "base URL and model are required"}
	}
	return nil
}

func (o *OllamaProvider) complete(ctx context.Context, cfg settings.AiConfig, p prompt, jsonMode bool) (string, error) {
	body := ollamaChatReq{
		Model:    cfg.Ollama.Model,
		Messages: p.messages(),
		Stream:   false,
	}
	if jsonMode {
		body.Format = "json"
	}
	var out ollamaChatResp
	endpoint := strings.TrimRight(cfg.Ollama.BaseURL, "/") + "/api/chat"
	if err := postJSON(ctx, o.http, o.Name(), endpoint, nil, body, &out); err != nil {
		return "", err
	}
	if out.Message == nil {
		return "", &ProtocolError{Provider: "Ollama API", Msg: "no message returned"}
	}
	return out.Message.Content, nil
}

func (o *OllamaProvider) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	return chatInitialFlow(ctx, o, cfg, src)
}

func (o *OllamaProvider) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	return chatRefine(ctx, o, cfg, history, flow)
}

func (o *OllamaProvider) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	return chatEnrich(ctx, o, cfg, flow, taskID, description)
}

func (o *OllamaProvider) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	return chatDocument(ctx, o, cfg, flow)
}
