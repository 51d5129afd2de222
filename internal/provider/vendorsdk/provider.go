// Package vendorsdk fronts several smaller OpenAI-compatible vendors
// behind a single Provider, the way the teacher's sideload_proxy.go
// forwards to whichever module currently backs a given provider id —
// except here the "modules" are lightweight openai.Provider instances
// built straight from ProviderConfig.Extra, not an out-of-process RPC
// module manager.
package vendorsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/provider/openai"
	"github.com/duskcore/agentd/internal/router"
	"go.uber.org/zap"
)

// vendorConfig is the JSON shape of one entry in ProviderConfig.Extra["vendors"].
type vendorConfig struct {
	ID      string   `json:"id"`
	BaseURL string   `json:"base_url"`
	APIKey  string   `json:"api_key"`
	Models  []string `json:"models"`
}

func init() {
	router.RegisterFactory("vendorsdk", func(cfg router.ProviderConfig, logger *zap.Logger) router.Provider {
		return New(cfg, logger)
	})
}

// vendor is one backend fronted by this aggregator, configured via
// ProviderConfig.Extra["vendors"] — a list of
// {"id", "base_url", "api_key", "models": [...]} objects.
type vendor struct {
	id     string
	models []string
	impl   *openai.Provider
}

// Provider aggregates several OpenAI-wire-compatible vendors, routing a
// request to whichever vendor advertises the requested model (or the
// first configured vendor when no model is pinned). Grounded on
// infrastructure/llm/sideload_proxy.go's id-keyed dispatch.
type Provider struct {
	id      string
	vendors []vendor
	logger  *zap.Logger
}

func New(cfg router.ProviderConfig, logger *zap.Logger) *Provider {
	p := &Provider{id: cfg.ID, logger: logger.With(zap.String("provider", cfg.ID), zap.String("type", "vendorsdk"))}

	var configs []vendorConfig
	if raw, ok := cfg.Extra["vendors"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &configs); err != nil {
			logger.Warn("vendorsdk: failed to parse Extra[\"vendors\"]", zap.Error(err))
		}
	}
	for _, vc := range configs {
		impl := openai.New(router.ProviderConfig{ID: vc.ID, BaseURL: vc.BaseURL, APIKey: vc.APIKey, Models: vc.Models}, logger)
		p.vendors = append(p.vendors, vendor{id: vc.ID, models: vc.Models, impl: impl})
	}
	return p
}

var _ router.Provider = (*Provider)(nil)

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Type() string { return "vendorsdk" }

func (p *Provider) DefaultModel() string {
	if len(p.vendors) > 0 {
		return p.vendors[0].impl.DefaultModel()
	}
	return ""
}

func (p *Provider) AvailableModels() []string {
	var all []string
	for _, v := range p.vendors {
		all = append(all, v.models...)
	}
	return all
}

func (p *Provider) Capabilities(ctx context.Context) (router.Capabilities, error) {
	return router.Capabilities{
		ChatCompletions: len(p.vendors) > 0, Streaming: true, FunctionCalling: true,
		Embeddings: true, MaxContextTokens: 32000, MaxOutputTokens: 4096,
		Models: p.AvailableModels(),
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (router.Health, error) {
	if len(p.vendors) == 0 {
		return router.HealthUnhealthy, fmt.Errorf("no vendors configured")
	}
	return router.HealthHealthy, nil
}

// resolve picks the vendor that owns the requested model, stripping a
// "vendorsdk/" or vendor-id prefix if present, falling back to the
// first configured vendor when the model is unpinned or unrecognized.
func (p *Provider) resolve(model string) (*vendor, error) {
	if len(p.vendors) == 0 {
		return nil, entity.NewError(entity.ErrNoProviderAvailable, "vendorsdk: no vendors configured")
	}
	bare := model
	if idx := strings.Index(bare, "/"); idx >= 0 {
		bare = bare[idx+1:]
	}
	for i := range p.vendors {
		for _, m := range p.vendors[i].models {
			if m == bare || m == model {
				return &p.vendors[i], nil
			}
		}
	}
	return &p.vendors[0], nil
}

func (p *Provider) Complete(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	v, err := p.resolve(req.Model)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("dispatching to vendor", zap.String("vendor", v.id), zap.String("model", req.Model))
	return v.impl.Complete(ctx, req)
}

func (p *Provider) CompleteStream(ctx context.Context, req *service.LLMRequest, onChunk func(service.StreamChunk)) (*service.LLMResponse, error) {
	v, err := p.resolve(req.Model)
	if err != nil {
		return nil, err
	}
	return v.impl.CompleteStream(ctx, req, onChunk)
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, string, error) {
	if len(p.vendors) == 0 {
		return nil, "", entity.NewError(entity.ErrNoProviderAvailable, "vendorsdk: no vendors configured")
	}
	return p.vendors[0].impl.Embed(ctx, text)
}
