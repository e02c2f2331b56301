package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Manifest lists the agents and composite tasks a run starts with.
type Manifest struct {
	Agents []models.AgentConfig `yaml:"agents"`
	Tasks  []ManifestTask       `yaml:"tasks"`
}

// ManifestTask is a composite task plus the backend selector its agents use.
type ManifestTask struct {
	models.CompositeTask `yaml:",inline"`
	// Backend is an orchestrator selector such as "claude" or "cursor-auto".
	Backend string `yaml:"backend"`
}

// LoadManifest reads and validates a swarm manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Validate checks required fields. Backends are checked at spawn time.
func (m *Manifest) Validate() error {
	for i, a := range m.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d]: name is required", i)
		}
		if a.Backend == "" {
			return fmt.Errorf("agents[%d] %s: backend is required", i, a.Name)
		}
		if a.DecisionInterval < 0 {
			return fmt.Errorf("agents[%d] %s: negative decision_interval", i, a.Name)
		}
	}
	for i, t := range m.Tasks {
		if t.Description == "" {
			return fmt.Errorf("tasks[%d]: description is required", i)
		}
		if t.Backend == "" {
			return fmt.Errorf("tasks[%d]: backend is required", i)
		}
	}
	return nil
}
