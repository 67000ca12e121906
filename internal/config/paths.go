package config

import (
	"os"
	"path/filepath"
)

// AccordPath returns the root directory for accord data.
// It uses $ACCORD_PATH if set, otherwise defaults to ~/.accord.
func AccordPath() string {
	if v := os.Getenv("ACCORD_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".accord")
	}
	return filepath.Join(home, ".accord")
}

// ConfigPath returns the path to the accord config file.
func ConfigPath() string {
	return filepath.Join(AccordPath(), "config.jsonc")
}

// DotenvPath returns the path to the accord .env file.
func DotenvPath() string {
	return filepath.Join(AccordPath(), ".env")
}
