package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// LoadAgentSpec reads a workspace-local agent spec override (spec §3)
// from a YAML file, layering it over entity.DefaultAgentSpec(). Returns
// the default spec unchanged if path does not exist, so a workspace
// without a spec file behaves exactly as it did before one was added.
func LoadAgentSpec(path string) (entity.AgentSpec, error) {
	spec := entity.DefaultAgentSpec()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return spec, nil
		}
		return spec, fmt.Errorf("config: reading agent spec %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("config: parsing agent spec %s: %w", path, err)
	}
	return spec, nil
}
