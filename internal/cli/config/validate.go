package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// ValidateDatabase checks that a usable database is configured.
func (c *Config) ValidateDatabase() error {
	if c.Database == nil {
		return fmt.Errorf("database type is required\nHint: Use --db or set database.type in leapstore.yaml")
	}
	return c.Database.Validate()
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.ModelDir); os.IsNotExist(err) {
		return fmt.Errorf("model directory does not exist: %s\nHint: Create the directory or use --model to specify a different path", c.ModelDir)
	}
	return nil
}
