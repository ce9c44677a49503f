package persona

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Persona is a simulated physician the trainee rehearses against.
type Persona struct {
	ID                 string             `json:"id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	Title              string             `json:"title" yaml:"title"`
	Specialty          string             `json:"specialty" yaml:"specialty"`
	PracticeSetting    PracticeSetting    `json:"practice_setting" yaml:"practice_setting"`
	CommunicationStyle CommunicationStyle `json:"communication_style" yaml:"communication_style"`
	Priorities         []string           `json:"priorities" yaml:"priorities"`
	Concerns           []string           `json:"concerns,omitempty" yaml:"concerns"`
	Background         string             `json:"background,omitempty" yaml:"background"`
}

// PracticeSetting describes where the physician works.
type PracticeSetting struct {
	Type     string `json:"type" yaml:"type"`
	Size     string `json:"size,omitempty" yaml:"size"`
	Location string `json:"location,omitempty" yaml:"location"`
}

// CommunicationStyle describes how the physician tends to engage.
type CommunicationStyle struct {
	Tone        string   `json:"tone" yaml:"tone"`
	Pace        string   `json:"pace,omitempty" yaml:"pace"`
	Preferences []string `json:"preferences,omitempty" yaml:"preferences"`
}

// TopPriorities returns at most n priorities in catalog order.
func (p Persona) TopPriorities(n int) []string {
	if len(p.Priorities) <= n {
		return append([]string(nil), p.Priorities...)
	}
	return append([]string(nil), p.Priorities[:n]...)
}

//go:embed personas.yaml
var catalogYAML []byte

type catalog struct {
	Personas []Persona `yaml:"personas"`
}

// Seed returns the built-in persona catalog.
func Seed() []Persona {
	personas, err := parseCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("persona: embedded catalog is invalid: %v", err))
	}
	return personas
}

func parseCatalog(data []byte) ([]Persona, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode persona catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Personas))
	for _, p := range c.Personas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("persona entry missing id or name")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return c.Personas, nil
}
