// Package config manages the Vezor CLI configuration file: KEY=VALUE
// lines under ~/.vezor. Credentials never land in this file; those live
// in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vezor/vezor-go/pkg/dotenv"
)

const dirName = ".vezor"
const fileName = "config"

// Keys used in the config file.
const (
	KeyAPIURL           = "api_url"
	KeyAuthURL          = "auth_url"
	KeyOrganizationID   = "organization_id"
	KeyOrganizationName = "organization_name"
)

// Config is an in-memory view of the config file. Mutations only touch
// disk on Save.
type Config struct {
	path   string
	values map[string]string
}

// Dir returns the Vezor config directory (~/.vezor).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load reads the config file from the default location. A missing file
// yields an empty config.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, fileName))
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{path: path, values: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return &Config{path: path, values: dotenv.Decode(string(data))}, nil
}

// Save writes the config back to disk with owner-only permissions,
// creating the directory if needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(c.path, []byte(dotenv.Encode(c.values)), 0o600)
}

// Get returns the value for key, or "" when unset.
func (c *Config) Get(key string) string {
	return c.values[key]
}

// Set stores a value. An empty value removes the key.
func (c *Config) Set(key, value string) {
	if value == "" {
		delete(c.values, key)
		return
	}
	c.values[key] = value
}

// APIURL returns the configured API endpoint, or "" when unset.
func (c *Config) APIURL() string {
	return c.Get(KeyAPIURL)
}

// OrganizationID returns the selected organization id, or "" when unset.
func (c *Config) OrganizationID() string {
	return c.Get(KeyOrganizationID)
}

// OrganizationName returns the selected organization's display name.
func (c *Config) OrganizationName() string {
	return c.Get(KeyOrganizationName)
}

// SetOrganization records the selected organization.
func (c *Config) SetOrganization(id, name string) {
	c.Set(KeyOrganizationID, id)
	c.Set(KeyOrganizationName, name)
}

// ClearOrganization removes the selected organization.
func (c *Config) ClearOrganization() {
	c.Set(KeyOrganizationID, "")
	c.Set(KeyOrganizationName, "")
}
