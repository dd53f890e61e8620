// Package formatter renders one line per alert from a template with
// {{variable}} placeholders, and keeps a registry of named templates.
package formatter

import (
	"fmt"
	"regexp"
	"strings"
)

// TemplateEngine provides template parsing and variable substitution.
type TemplateEngine interface {
	// Parse returns the variables found in the template, without duplicates.
	Parse(template string) ([]string, error)

	// Substitute replaces variables in the template with values from the context.
	Substitute(template string, ctx VariableContext) (string, error)

	// Validate checks delimiters and that every variable is known.
	Validate(template string) error
}

type templateEngine struct {
	variablePattern *regexp.Regexp
	resolver        VariableResolver
}

// NewTemplateEngine creates a new template engine instance.
func NewTemplateEngine() TemplateEngine {
	return &templateEngine{
		variablePattern: regexp.MustCompile(`\{\{([a-z0-9-]+)\}\}`),
		resolver:        NewVariableResolver(),
	}
}

// Parse identifies all variables in a template string using {{variable-name}} syntax.
func (te *templateEngine) Parse(template string) ([]string, error) {
	matches := te.variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	variables := []string{}
	for _, match := range matches {
		if !seen[match[1]] {
			seen[match[1]] = true
			variables = append(variables, match[1])
		}
	}
	return variables, nil
}

// Substitute replaces all variables in the template with values from the context.
// The first unknown variable aborts substitution.
func (te *templateEngine) Substitute(template string, ctx VariableContext) (string, error) {
	if template == "" {
		return "", nil
	}
	var firstErr error
	result := te.variablePattern.ReplaceAllStringFunc(template, func(token string) string {
		if firstErr != nil {
			return ""
		}
		name := token[2 : len(token)-2]
		value, err := te.resolver.Resolve(name, ctx)
		if err != nil {
			firstErr = err
			return ""
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Validate checks that a template has balanced delimiters and only known variables.
func (te *templateEngine) Validate(template string) error {
	openCount := strings.Count(template, "{{")
	closeCount := strings.Count(template, "}}")
	if openCount != closeCount {
		return fmt.Errorf("mismatched variable delimiters: %d opens, %d closes", openCount, closeCount)
	}
	if found := len(te.variablePattern.FindAllString(template, -1)); found != openCount {
		return fmt.Errorf("malformed variable name in template %q", template)
	}
	vars, _ := te.Parse(template)
	for _, name := range vars {
		if !IsVariable(name) {
			return fmt.Errorf("unknown variable: %s (available: %s)", name, strings.Join(Variables(), ", "))
		}
	}
	return nil
}

// Lookup turns a preset name or a literal template into a validated template.
func Lookup(registry PresetRegistry, nameOrTemplate string) (string, error) {
	if nameOrTemplate == "" {
		nameOrTemplate = DefaultPreset
	}
	if preset, err := registry.Get(nameOrTemplate); err == nil {
		return preset.Template, nil
	}
	if !strings.Contains(nameOrTemplate, "{{") {
		names := make([]string, 0)
		for _, p := range registry.List() {
			names = append(names, p.Name)
		}
		return "", fmt.Errorf("unknown alert format %q (presets: %s)", nameOrTemplate, strings.Join(names, ", "))
	}
	if err := NewTemplateEngine().Validate(nameOrTemplate); err != nil {
		return "", err
	}
	return nameOrTemplate, nil
}
