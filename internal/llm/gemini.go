package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	genai "google.golang.org/genai"

	"sopflow/internal/schema"
	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// GeminiProvider is the constrained-output adapter: it hands the response
// schema to the API and accepts file attachments.
type GeminiProvider struct {
	http    *http.Client
	baseURL string
}

// NewGeminiProvider returns the adapter. baseURL overrides the API endpoint
// and is empty outside tests.
func NewGeminiProvider(client *http.Client, baseURL string) *GeminiProvider {
	return &GeminiProvider{http: client, baseURL: baseURL}
}

func (g *GeminiProvider) Name() string        { return string(settings.ProviderGemini) }
func (g *GeminiProvider) SupportsFiles() bool { return true }

// client builds a genai client for one call so settings edits apply to the
// next request without a restart.
func (g *GeminiProvider) client(ctx context.Context, cfg settings.AiConfig) (*genai.Client, string, error) {
	key := strings.TrimSpace(cfg.Gemini.APIKey)
	if key == "" {
		return nil, "", &ConfigurationError{Provider: "Gemini", Msg: "API key is required (settings or GEMINI_API_KEY)"}
	}
	model := cfg.Gemini.Model
	if model == "" {
		model = settings.DefaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.http,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, "", &ConfigurationError{Provider: "Gemini", Msg: err.Error()}
	}
	return cli, model, nil
}

func (g *GeminiProvider) generate(ctx context.Context, cfg settings.AiConfig, parts []*genai.Part, gc *genai.GenerateContentConfig) (string, error) {
	cli, model, err := g.client(ctx, cfg)
	if err != nil {
		return "", err
	}
	resp, err := cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: "user", Parts: parts}}, gc)
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ProtocolError{Provider: "Gemini API", Msg: "no candidates returned"}
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: "Gemini", Status: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &TransportError{Provider: "Gemini", Status: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}
	return &TransportError{Provider: "Gemini", Err: err}
}

func jsonConfig(s *genai.Schema, system string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   s,
	}
	if system != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return gc
}

func (g *GeminiProvider) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	var parts []*genai.Part
	switch {
	case src.File != nil && len(src.File.Data) > 0:
		parts = []*genai.Part{
			{Text: analyzeFilePrompt().User},
			{InlineData: &genai.Blob{MIMEType: src.File.MIMEType, Data: src.File.Data}},
		}
	case strings.TrimSpace(src.Text) != "":
		parts = []*genai.Part{{Text: analyzePrompt(src.Text, false).User}}
	default:
		return nil, ErrNoSource
	}
	text, err := g.generate(ctx, cfg, parts, jsonConfig(schema.ProcessFlow(), ""))
	if err != nil {
		return nil, err
	}
	return decodeFlow(text, DecodeStrict)
}

func (g *GeminiProvider) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	p := refinePrompt(history, flow, false)
	text, err := g.generate(ctx, cfg, []*genai.Part{{Text: p.User}}, jsonConfig(schema.ChatRefinement(), p.System))
	if err != nil {
		return nil, err
	}
	return decodeRefinement(text, DecodeStrict)
}

func (g *GeminiProvider) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	p := enrichPrompt(flow, taskID, description, false)
	text, err := g.generate(ctx, cfg, []*genai.Part{{Text: p.System + "\n\n" + p.User}}, jsonConfig(schema.ProcessFlow(), ""))
	if err != nil {
		return nil, err
	}
	return decodeFlow(text, DecodeStrict)
}

func (g *GeminiProvider) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	return g.generate(ctx, cfg, []*genai.Part{{Text: documentPrompt(flow).User}}, nil)
}
