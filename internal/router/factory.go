package router

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ProviderFactory builds a Provider from its config. Concrete provider
// packages register a factory from an init() function, mirroring the
// teacher's infrastructure/llm.RegisterFactory pattern.
type ProviderFactory func(cfg ProviderConfig, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterFactory registers a provider factory under typeName. Called
// from init() in internal/provider/{openai,anthropic,moonshot,xai,vendorsdk}.
func RegisterFactory(typeName string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateProvider builds a Provider using the factory registered for
// cfg.Type. Type defaults to "openai" when unset, matching the wire
// format most of this pack's adapters speak.
func CreateProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "openai"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()
	if !ok {
		available := make([]string, 0, len(factories))
		factoryMu.RLock()
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown provider type %q (registered: %v)", t, available)
	}
	return factory(cfg, logger), nil
}
