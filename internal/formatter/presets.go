package formatter

import "fmt"

// DefaultPreset is used when no alert format is configured.
const DefaultPreset = "default"

// Preset represents a template preset with name, template string, and description.
type Preset struct {
	Name        string
	Template    string
	Description string
}

// PresetRegistry manages template presets.
type PresetRegistry interface {
	// Get returns a preset by name.
	Get(name string) (*Preset, error)

	// List returns all available presets.
	List() []Preset

	// Register adds a new preset.
	Register(preset Preset) error
}

type presetRegistry struct {
	presets map[string]Preset
	order   []string
}

// NewPresetRegistry creates a new preset registry with the built-in presets.
func NewPresetRegistry() PresetRegistry {
	registry := &presetRegistry{
		presets: make(map[string]Preset),
	}
	registry.registerDefaults()
	return registry
}

func (pr *presetRegistry) registerDefaults() {
	presets := []Preset{
		{
			Name:        DefaultPreset,
			Template:    "{{time}} {{level}} {{type}} {{camera}} (cam {{camera-id}}) {{subject}} {{confidence}} #{{id}} [{{outcome}}] toast {{toast}}",
			Description: "Time, severity, camera, subject and what the inbox did",
		},
		{
			Name:        "compact",
			Template:    "{{time}} {{level}} {{subject}} @ {{camera}}",
			Description: "Who was seen where",
		},
		{
			Name:        "detailed",
			Template:    "{{date}} {{time}} {{level}} {{type}} {{subject}} group={{group}} camera={{camera}}#{{camera-id}} zone={{zone}} track={{track}} confidence={{confidence}} id={{id}} alert={{outcome}} toast={{toast}}",
			Description: "Every field, key=value",
		},
		{
			Name:        "tsv",
			Template:    "{{id}}\t{{timestamp}}\t{{level}}\t{{type}}\t{{camera-id}}\t{{subject}}\t{{track}}\t{{outcome}}",
			Description: "Tab separated, for scripts",
		},
	}
	for _, preset := range presets {
		pr.presets[preset.Name] = preset
		pr.order = append(pr.order, preset.Name)
	}
}

// Get returns a preset by name, or an error if not found.
func (pr *presetRegistry) Get(name string) (*Preset, error) {
	preset, ok := pr.presets[name]
	if !ok {
		return nil, fmt.Errorf("preset not found: %s", name)
	}
	return &preset, nil
}

// List returns all available presets in registration order.
func (pr *presetRegistry) List() []Preset {
	result := make([]Preset, 0, len(pr.order))
	for _, name := range pr.order {
		result = append(result, pr.presets[name])
	}
	return result
}

// Register adds a new preset or overwrites an existing one.
func (pr *presetRegistry) Register(preset Preset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if preset.Template == "" {
		return fmt.Errorf("preset template cannot be empty")
	}
	if err := NewTemplateEngine().Validate(preset.Template); err != nil {
		return fmt.Errorf("preset %s: %w", preset.Name, err)
	}
	if _, exists := pr.presets[preset.Name]; !exists {
		pr.order = append(pr.order, preset.Name)
	}
	pr.presets[preset.Name] = preset
	return nil
}
