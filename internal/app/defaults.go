package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - RADIUS_CONFIG_PATH: config file location (default: ~/.config/radius.toml)
//   - RADIUS_HOME: base directory for radius data (default: ~/.local/share/radius)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking RADIUS_CONFIG_PATH env var first,
// then falling back to the default ~/.config/radius.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("RADIUS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "radius.toml"), nil
}

// getBaseDir returns the base directory for radius data, checking RADIUS_HOME env var first,
// then falling back to the XDG default ~/.local/share/radius.
func getBaseDir() (string, error) {
	if path := os.Getenv("RADIUS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "radius"), nil
}

// LoadEnv loads .env files from the working directory and from baseDir.
// Missing files are skipped; variables already set in the environment win.
func LoadEnv(baseDir string) error {
	for _, path := range []string{".env", filepath.Join(baseDir, ".env")} {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}
