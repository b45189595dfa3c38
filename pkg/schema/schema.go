// Package schema models the vezor.schema.yml file: the declared set of
// secret keys a service needs per environment. Files are checked against
// an embedded JSON Schema before use, so a typo fails loudly instead of
// silently validating nothing.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// FileName is the conventional schema file name in a project root.
const FileName = "vezor.schema.yml"

//go:embed schema.json
var schemaJSON []byte

// Entry declares one secret key a service needs.
type Entry struct {
	Type        string `yaml:"type,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Environment declares the keys for one deployment environment. Inherit
// names another section ("base" or a sibling environment) whose entries
// are merged in underneath the environment's own.
type Environment struct {
	Inherit string           `yaml:"inherit,omitempty"`
	Keys    map[string]Entry `yaml:",inline"`
}

// Schema is a parsed vezor.schema.yml.
type Schema struct {
	Version      int                    `yaml:"version"`
	Service      string                 `yaml:"service,omitempty"`
	Base         map[string]Entry       `yaml:"base,omitempty"`
	Environments map[string]Environment `yaml:"environments,omitempty"`
}

// Parse decodes schema YAML, first checking its structure against the
// embedded JSON Schema.
func Parse(data []byte) (*Schema, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return &s, nil
}

// validateDocument checks the decoded YAML against the embedded JSON
// Schema, reporting every violation at once.
func validateDocument(doc any) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for validation: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("invalid schema file:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}
	return nil
}

// EnvironmentNames returns the declared environments, sorted.
func (s *Schema) EnvironmentNames() []string {
	names := make([]string, 0, len(s.Environments))
	for name := range s.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve flattens inheritance for one environment, returning the full
// key set it requires. Environment-local entries win over inherited
// ones.
func (s *Schema) Resolve(env string) (map[string]Entry, error) {
	var overlays []map[string]Entry
	seen := make(map[string]bool)
	name := env
	for name != "" {
		if name == "base" {
			overlays = append(overlays, s.Base)
			break
		}
		environment, ok := s.Environments[name]
		if !ok {
			if name == env {
				return nil, fmt.Errorf("environment %q not defined in schema", env)
			}
			return nil, fmt.Errorf("environment %q inherits unknown section %q", env, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("inheritance cycle at %q", name)
		}
		seen[name] = true
		overlays = append(overlays, environment.Keys)
		name = environment.Inherit
	}

	resolved := make(map[string]Entry)
	for i := len(overlays) - 1; i >= 0; i-- {
		for k, v := range overlays[i] {
			resolved[k] = v
		}
	}
	return resolved, nil
}

const fileTemplate = `version: 1
service: %s

base:
  DATABASE_URL:
    type: connection_string
    required: true
    description: Primary database connection
  API_KEY:
    type: password
    required: true
    description: Upstream API credential
  LOG_LEVEL:
    type: string
    required: false
    description: Log verbosity override

environments:
  development:
    inherit: base
  staging:
    inherit: base
  production:
    inherit: base
`

// Template returns a starter vezor.schema.yml for a service.
func Template(service string) []byte {
	if service == "" {
		service = "my-app"
	}
	return []byte(fmt.Sprintf(fileTemplate, service))
}
