// Package config defines xfrase's flat, JSON-serializable configuration
// and its file round trip (SPEC_FULL.md §1.3). Grounded on the CpG-index
// and methylome metadata sidecar files (internal/cpgindex,
// internal/methylome): configuration is persisted as JSON, the same
// encoding those sidecar files use.
package config

import (
	"encoding/json"
	"os"

	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xlog"
)

// EnvConfigDir is the name of the XFRASE_CONFIG_DIR environment variable.
// Nothing reads it: a config file is loaded only when --config-file is
// given.
const EnvConfigDir = "XFRASE_CONFIG_DIR"

// Config is the complete set of server-side knobs, flattened into one
// struct so it can be round-tripped through --make-config/--config-file
// without a layered schema.
type Config struct {
	Hostname     string     `json:"hostname"`
	Port         int        `json:"port"`
	MethylomeDir string     `json:"methylome_dir"`
	IndexDir     string     `json:"index_dir"`
	MaxResident  int        `json:"max_resident"`
	Threads      int        `json:"threads"`
	StepTimeoutS float64    `json:"step_timeout_s"`
	Daemonize    bool       `json:"daemonize"`
	LogLevel     xlog.Level `json:"log_level"`
	LogFile      string     `json:"log_file"`
}

// Default returns the configuration used when no file and no flags
// override a field (spec.md §4.5/§4.9/§6 defaults).
func Default() Config {
	return Config{
		Hostname:     "0.0.0.0",
		Port:         5000,
		MethylomeDir: ".",
		IndexDir:     ".",
		MaxResident:  32,
		Threads:      1,
		StepTimeoutS: 3.0,
		Daemonize:    false,
		LogLevel:     xlog.LevelInfo,
		LogFile:      "",
	}
}

// Write serializes cfg as indented JSON to path, write-then-rename for
// atomicity (the same durability pattern internal/methylome.Store uses
// for its files).
func Write(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return xerrors.New("config.Write", xerrors.InternalError, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerrors.New("config.Write", xerrors.IOError, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.New("config.Write", xerrors.IOError, err)
	}
	return nil
}

// Load reads and parses a config file written by Write.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.New("config.Load", xerrors.IOError, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, xerrors.New("config.Load", xerrors.CorruptData, err)
	}
	return cfg, nil
}
