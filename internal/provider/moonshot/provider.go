// Package moonshot adapts Moonshot AI's Kimi API, which speaks the same
// chat-completions wire format as OpenAI: this package is a thin
// base-URL/default-model variant of internal/provider/openai rather than
// its own implementation, grounded on openai/provider.go's
// buildAPIRequest model-prefix-stripping rule.
package moonshot

import (
	"github.com/duskcore/agentd/internal/provider/openai"
	"github.com/duskcore/agentd/internal/router"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.moonshot.cn/v1"

func init() {
	router.RegisterFactory("moonshot", func(cfg router.ProviderConfig, logger *zap.Logger) router.Provider {
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultBaseURL
		}
		return &Provider{Provider: openai.New(cfg, logger)}
	})
}

// Provider wraps openai.Provider to report "moonshot" as its Type and a
// Kimi-appropriate DefaultModel, while reusing every other behavior
// (request building, SSE parsing, error categorization) unchanged.
type Provider struct {
	*openai.Provider
}

var _ router.Provider = (*Provider)(nil)

func (p *Provider) Type() string { return "moonshot" }

func (p *Provider) DefaultModel() string {
	if models := p.Provider.AvailableModels(); len(models) > 0 {
		return models[0]
	}
	return "moonshot-v1-8k"
}
