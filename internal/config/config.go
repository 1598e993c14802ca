package config

import (
	"os"

	"github.com/joho/godotenv"
)

const DefaultPath = "/etc/bootward/bootward.env"

// Config carries the few operator-tunable knobs. Everything else is
// platform strategy data fixed at build time.
type Config struct {
	LogLevel  string
	StatePath string
}

// Load reads the env-style config file if present. A missing file yields
// the defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Config{LogLevel: "info"}
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return cfg, err
	}
	if v := env["BOOTWARD_LOG_LEVEL"]; v != "" {
		cfg.LogLevel = v
	}
	if v := env["BOOTWARD_STATE_PATH"]; v != "" {
		cfg.StatePath = v
	}
	return cfg, nil
}
