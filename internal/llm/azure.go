package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// AzureProvider calls an Azure OpenAI chat-completions deployment.
type AzureProvider struct {
	http *http.Client
}

// NewAzureProvider returns an adapter using client, or a default client when nil.
// Deadlines come from the caller's context.
func NewAzureProvider(client *http.Client) *AzureProvider {
	return &AzureProvider{http: defaultHTTPClient(client)}
}

func (a *AzureProvider) Name() string { return string(settings.ProviderAzure) }

type azureChatReq struct {
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type azureChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *AzureProvider) validate(cfg settings.AiConfig) error {
	az := cfg.Azure
	if strings.TrimSpace(az.Endpoint) == "" || strings.TrimSpace(az.Deployment) == "" || strings.TrimSpace(az.APIKey) == "" {
		return &ConfigurationError{Provider: "Azure OpenAI", Msg: "endpoint, deployment and API key are required"}
	}
	return nil
}

// completionsURL builds {endpoint}/openai/deployments/{deployment}/chat/completions?api-version=...
func completionsURL(az settings.AzureConfig) string {
	version := az.APIVersion
	if version == "" {
		version = settings.DefaultAzureAPIVersion
	}
	return strings.TrimRight(az.Endpoint, "/") + "/openai/deployments/" + url.PathEscape(az.Deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(version)
}

func (a *AzureProvider) complete(ctx context.Context, cfg settings.AiConfig, p prompt, jsonMode bool) (string, error) {
	body := azureChatReq{
		Messages:    p.messages(),
		Temperature: 0.2,
		MaxTokens:   4096,
	}
	if jsonMode {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	header := http.Header{}
	header.Set("api-key", cfg.Azure.APIKey)

	var out azureChatResp
	if err := postJSON(ctx, a.http, a.Name(), completionsURL(cfg.Azure), header, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &ProtocolError{Provider: "Azure API", Msg: "no choices returned"}
	}
	return out.Choices[0].Message.Content, nil
}

func (a *AzureProvider) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	return chatInitialFlow(ctx, a, cfg, src)
}

func (a *AzureProvider) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	return chatRefine(ctx, a, cfg, history, flow)
}

func (a *AzureProvider) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	return chatEnrich(ctx, a, cfg, flow, taskID, description)
}

func (a *AzureProvider) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	return chatDocument(ctx, a, cfg, flow)
}
