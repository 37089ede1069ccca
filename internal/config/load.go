package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const configFileName = appName + ".json"

// Load builds the configuration for workingDir. Values come from, in
// increasing precedence: defaults, juggy.json (data dir, then working dir),
// JUGGY_* variables from envs and any .env file, and finally the explicit
// dataDir and debug arguments.
func Load(workingDir, dataDir string, debug bool, envs []string) (*Config, error) {
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workingDir = wd
	}

	env, err := loadEnv(workingDir, envs)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	cfg.workingDir = workingDir
	cfg.env = env

	for _, path := range ConfigPaths(workingDir, dataDir) {
		if err := readConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.Options.DataDirectory = dataDir
	}
	if !filepath.IsAbs(cfg.Options.DataDirectory) {
		cfg.Options.DataDirectory = filepath.Join(workingDir, cfg.Options.DataDirectory)
	}
	if debug {
		cfg.Options.Debug = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	instance.Store(cfg)
	return cfg, nil
}

// ConfigPaths lists the config files [Load] reads, lowest precedence
// first.
func ConfigPaths(workingDir, dataDir string) []string {
	paths := []string{filepath.Join(workingDir, configFileName)}
	if dataDir != "" {
		paths = append([]string{filepath.Join(dataDir, configFileName)}, paths...)
	}
	return paths
}

// loadEnv merges envs (KEY=VALUE pairs, usually os.Environ) with the .env
// file in workingDir. Variables already present in envs win.
func loadEnv(workingDir string, envs []string) (map[string]string, error) {
	env := make(map[string]string, len(envs))
	for _, kv := range envs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}

	dotEnv := filepath.Join(workingDir, ".env")
	fromFile, err := godotenv.Read(dotEnv)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dotEnv, err)
	}
	for key, value := range fromFile {
		if _, ok := env[key]; !ok {
			env[key] = value
		}
	}
	slog.Debug("Loaded .env file", "path", dotEnv, "keys", len(fromFile))
	return env, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	slog.Debug("Loaded config file", "path", path)
	return nil
}

func applyEnv(cfg *Config, env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = v
		}
	}
	str("JUGGY_DATA_DIR", &cfg.Options.DataDirectory)
	str("JUGGY_HOST", &cfg.Options.Host)
	str("JUGGY_PROVIDER_API_KEY", &cfg.Provider.APIKey)
	str("JUGGY_PROVIDER_BASE_URL", &cfg.Provider.BaseURL)
	str("JUGGY_PROVIDER_MODEL", &cfg.Provider.Model)
	str("JUGGY_PARSER_URL", &cfg.Parser.URL)
	str("JUGGY_AGENTS_FILE", &cfg.Agents.File)
	str("JUGGY_DEFAULT_AGENT", &cfg.Agents.DefaultAgent)
	str("JUGGY_DEFAULT_STRATEGY", &cfg.Agents.DefaultStrategy)

	if v, ok := env["JUGGY_DEBUG"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid JUGGY_DEBUG: %w", err)
		}
		cfg.Options.Debug = b
	}
	if v, ok := env["JUGGY_CONCURRENT_TOOLS"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid JUGGY_CONCURRENT_TOOLS: %w", err)
		}
		cfg.Stream.ConcurrentTools = b
	}
	if v, ok := env["JUGGY_TERMINATION_THRESHOLD"]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JUGGY_TERMINATION_THRESHOLD: %w", err)
		}
		cfg.Metering.TerminationThreshold = f
	}
	if v, ok := env["JUGGY_RELINK_THRESHOLD_MINUTES"]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid JUGGY_RELINK_THRESHOLD_MINUTES: %w", err)
		}
		cfg.Metering.RelinkThresholdMinutes = n
	}
	if v, ok := env["JUGGY_STREAM_TIMEOUT"]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JUGGY_STREAM_TIMEOUT: %w", err)
		}
		cfg.Stream.Timeout = Duration(d)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Agents.DefaultStrategy {
	case StrategyQuestionsOnly, StrategyQuestionsAndExchanges, StrategyFullContext:
	default:
		return fmt.Errorf("unknown context strategy %q", c.Agents.DefaultStrategy)
	}
	if c.Stream.MaxToolRounds < 1 {
		return fmt.Errorf("stream.max_tool_rounds must be at least 1")
	}
	if c.Metering.RelinkThresholdMinutes < 0 {
		return fmt.Errorf("metering.relink_threshold_minutes must not be negative")
	}
	return nil
}
