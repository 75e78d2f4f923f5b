package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p prompt) messages() []chatMessage {
	return []chatMessage{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

// chatBackend is a chat-completion style endpoint that takes a system and a
// user message and returns text. JSON mode is a hint; the response still
// goes through Normalize.
type chatBackend interface {
	Name() string
	validate(cfg settings.AiConfig) error
	complete(ctx context.Context, cfg settings.AiConfig, p prompt, jsonMode bool) (string, error)
}

func chatInitialFlow(ctx context.Context, b chatBackend, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	if src.File != nil {
		return nil, &CapabilityError{Provider: b.Name(), Capability: "file uploads"}
	}
	if strings.TrimSpace(src.Text) == "" {
		return nil, ErrNoSource
	}
	if err := b.validate(cfg); err != nil {
		return nil, err
	}
	text, err := b.complete(ctx, cfg, analyzePrompt(src.Text, true), true)
	if err != nil {
		return nil, err
	}
	return DecodeFlow(text)
}

func chatRefine(ctx context.Context, b chatBackend, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	if err := b.validate(cfg); err != nil {
		return nil, err
	}
	text, err := b.complete(ctx, cfg, refinePrompt(history, flow, true), true)
	if err != nil {
		return nil, err
	}
	return DecodeRefinement(text)
}

func chatEnrich(ctx context.Context, b chatBackend, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	if err := b.validate(cfg); err != nil {
		return nil, err
	}
	text, err := b.complete(ctx, cfg, enrichPrompt(flow, taskID, description, true), true)
	if err != nil {
		return nil, err
	}
	return DecodeFlow(text)
}

func chatDocument(ctx context.Context, b chatBackend, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	if err := b.validate(cfg); err != nil {
		return "", err
	}
	return b.complete(ctx, cfg, documentPrompt(flow), false)
}

// postJSON sends body to url and decodes a 2xx response into out. Non-2xx
// responses become a TransportError carrying the raw body.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return &TransportError{Provider: provider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Provider: provider, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Provider: provider, Status: resp.StatusCode, Body: string(raw), RetryAfter: retryAfter(resp.Header)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{Provider: provider, Msg: "response body is not JSON: " + err.Error()}
	}
	return nil
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{}
	}
	return c
}
