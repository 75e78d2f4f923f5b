package llm

import (
	"context"
	"errors"
	"io"
	"net/http"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// Router dispatches each call to the provider named by the configuration.
// Unknown provider names fall back to gemini.
type Router struct {
	providers map[settings.Provider]Provider
}

func NewRouter(providers map[settings.Provider]Provider) *Router {
	m := make(map[settings.Provider]Provider, len(providers))
	for k, v := range providers {
		m[k] = v
	}
	return &Router{providers: m}
}

// NewDefaultRouter wires the three network adapters, each wrapped with mws.
func NewDefaultRouter(client *http.Client, mws ...Middleware) *Router {
	return NewRouter(map[settings.Provider]Provider{
		settings.ProviderGemini: Wrap(NewGeminiProvider(client, ""), mws...),
		settings.ProviderAzure:  Wrap(NewAzureProvider(client), mws...),
		settings.ProviderOllama: Wrap(NewOllamaProvider(client), mws...),
	})
}

// NewOfflineRouter answers every provider name with the fake provider.
func NewOfflineRouter(mws ...Middleware) *Router {
	fake := Wrap(NewFakeProvider(), mws...)
	return NewRouter(map[settings.Provider]Provider{
		settings.ProviderGemini: fake,
		settings.ProviderAzure:  fake,
		settings.ProviderOllama: fake,
	})
}

func (r *Router) Name() string { return "router" }

// Close closes every registered provider that holds resources, such as the
// refill goroutine of a rate limiter. A provider shared by several names is
// closed once.
func (r *Router) Close() error {
	seen := make(map[Provider]bool, len(r.providers))
	var errs []error
	for _, p := range r.providers {
		if p == nil || seen[p] {
			continue
		}
		seen[p] = true
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Select returns the provider for cfg and the name it was selected under.
func (r *Router) Select(cfg settings.AiConfig) (Provider, settings.Provider, error) {
	name := cfg.Provider
	switch name {
	case settings.ProviderGemini, settings.ProviderAzure, settings.ProviderOllama:
	default:
		name = settings.ProviderGemini
	}
	p, ok := r.providers[name]
	if !ok || p == nil {
		return nil, name, &ConfigurationError{Provider: string(name), Msg: "no adapter registered"}
	}
	return p, name, nil
}

func (r *Router) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	p, name, err := r.Select(cfg)
	if err != nil {
		return nil, err
	}
	if src.File != nil && !SupportsFiles(p) {
		return nil, &CapabilityError{Provider: string(name), Capability: "file uploads"}
	}
	return p.GenerateInitialFlow(ctx, cfg, src)
}

func (r *Router) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	p, _, err := r.Select(cfg)
	if err != nil {
		return nil, err
	}
	return p.RefineFlow(ctx, cfg, history, flow)
}

func (r *Router) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	p, _, err := r.Select(cfg)
	if err != nil {
		return nil, err
	}
	return p.EnrichStep(ctx, cfg, flow, taskID, description)
}

func (r *Router) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	p, _, err := r.Select(cfg)
	if err != nil {
		return "", err
	}
	return p.GenerateDocument(ctx, cfg, flow)
}
