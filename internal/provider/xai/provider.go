// Package xai adapts xAI's Grok models, also served over an
// OpenAI-compatible chat-completions endpoint, same pattern as
// internal/provider/moonshot.
package xai

import (
	"context"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/provider/openai"
	"github.com/duskcore/agentd/internal/router"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.x.ai/v1"

func init() {
	router.RegisterFactory("xai", func(cfg router.ProviderConfig, logger *zap.Logger) router.Provider {
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultBaseURL
		}
		return &Provider{Provider: openai.New(cfg, logger)}
	})
}

// Provider wraps openai.Provider to report "xai" as its Type and a
// Grok-appropriate DefaultModel.
type Provider struct {
	*openai.Provider
}

var _ router.Provider = (*Provider)(nil)

func (p *Provider) Type() string { return "xai" }

func (p *Provider) DefaultModel() string {
	if models := p.Provider.AvailableModels(); len(models) > 0 {
		return models[0]
	}
	return "grok-2-latest"
}

// Capabilities overrides the embedded openai.Provider's: Grok has no
// embeddings endpoint.
func (p *Provider) Capabilities(ctx context.Context) (router.Capabilities, error) {
	caps, err := p.Provider.Capabilities(ctx)
	caps.Embeddings = false
	return caps, err
}

// Embed overrides the embedded openai.Provider's: xAI does not expose
// an embeddings endpoint, so the Router must never select this
// provider for an embed call.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, string, error) {
	return nil, "", entity.NewError(entity.ErrUnsupportedCapability, "xai provider does not support embeddings")
}
