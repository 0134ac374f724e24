// Package config resolves client configuration from the environment, with
// an optional .env file in the working directory.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// APIURL is the backend base URL, without a trailing slash.
	APIURL string
	// ConfigDir holds the persisted session and its sealing key.
	ConfigDir string
}

const defaultAPIURL = "http://localhost:3000/api/v1"

// Load reads .env (if present) and the environment. Flags may still
// override individual fields at the CLI layer.
func Load() Config {
	_ = godotenv.Load()

	url := os.Getenv("STORECTL_API_URL")
	if url == "" {
		url = defaultAPIURL
	}
	dir := os.Getenv("STORECTL_CONFIG_DIR")
	if dir == "" {
		dir = cfgDir()
	}
	return Config{APIURL: url, ConfigDir: dir}
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "storectl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "storectl")
}
