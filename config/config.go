package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "GRAM_GITHUB_TOKEN"

	// EnvGithubTokenFallback is honored when EnvGithubToken is unset, so the
	// conventional GITHUB_TOKEN from CI environments works as-is
	EnvGithubTokenFallback = "GITHUB_TOKEN"

	defaultDatabasePath = "gram.db"
	defaultPerPage      = 100
)

// Config represents the application configuration
type Config struct {
	// GitHub API token for authentication (optional, can be set via GRAM_GITHUB_TOKEN env var)
	GitHubToken string `json:"github_token"`

	// Path to the SQLite database file
	DatabasePath string `json:"database_path"`

	// List of repositories to sync in the format "owner/name"
	Repositories []string `json:"repositories"`

	// Logins excluded from first-response metrics (release bots and the like)
	BotLogins []string `json:"bot_logins,omitempty"`

	// Use the GraphQL API to bulk-fetch pull request size stats
	UseGraphQL bool `json:"use_graphql,omitempty"`

	// Page size for list requests, capped at the API maximum of 100
	PerPage int `json:"per_page,omitempty"`
}

// LoadConfig loads the configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Check for GitHub token in environment variables
	if envToken := os.Getenv(EnvGithubToken); envToken != "" {
		config.GitHubToken = envToken
	} else if envToken := os.Getenv(EnvGithubTokenFallback); envToken != "" {
		config.GitHubToken = envToken
	}

	// Set default database path if not specified
	if config.DatabasePath == "" {
		config.DatabasePath = defaultDatabasePath
	}

	// Make database path absolute if it's relative
	if !filepath.IsAbs(config.DatabasePath) {
		configDir := filepath.Dir(path)
		config.DatabasePath = filepath.Join(configDir, config.DatabasePath)
	}

	if config.PerPage <= 0 || config.PerPage > 100 {
		config.PerPage = defaultPerPage
	}

	return &config, nil
}

// SaveConfig saves the configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	// Check if the file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	// Create default config
	config := &Config{
		GitHubToken:  "",
		DatabasePath: defaultDatabasePath,
		Repositories: []string{"example/repo"},
	}

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Save the config
	return SaveConfig(config, path)
}

// AddRepository appends a repository to the config if not already present.
// It reports whether the list changed.
func (c *Config) AddRepository(fullName string) bool {
	for _, r := range c.Repositories {
		if r == fullName {
			return false
		}
	}
	c.Repositories = append(c.Repositories, fullName)
	return true
}
