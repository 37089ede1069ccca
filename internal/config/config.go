package config

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	appName              = "juggy"
	defaultDataDirectory = ".juggy"
	defaultHost          = "tcp://127.0.0.1:8080"
	defaultModel         = "gpt-4o-mini"
	defaultAgentName     = "interviewer_agent"
)

// Context-assembly strategies understood by the orchestrator.
const (
	StrategyQuestionsOnly         = "questions_only"
	StrategyQuestionsAndExchanges = "questions_and_exchanges"
	StrategyFullContext           = "full_context"
)

var instance atomic.Pointer[Config]

// Get returns the configuration installed by the last [Load]. It panics if
// nothing was loaded yet.
func Get() *Config {
	cfg := instance.Load()
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg
}

type Config struct {
	Options  *Options       `json:"options,omitempty"`
	Provider ProviderConfig `json:"provider"`
	Metering Metering       `json:"metering"`
	Stream   StreamOptions  `json:"stream"`
	Parser   ParserConfig   `json:"parser"`
	Agents   AgentsConfig   `json:"agents"`

	workingDir string
	env        map[string]string
}

type Options struct {
	DataDirectory string `json:"data_directory,omitempty"`
	Debug         bool   `json:"debug,omitempty"`
	Host          string `json:"host,omitempty"`
}

type ProviderConfig struct {
	// APIKey may reference an environment variable as "$NAME".
	APIKey           string            `json:"api_key,omitempty"`
	BaseURL          string            `json:"base_url,omitempty"`
	Model            string            `json:"model,omitempty"`
	MaxTokens        int64             `json:"max_tokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	ExtraHeaders     map[string]string `json:"extra_headers,omitempty"`
	ExtraBody        map[string]any    `json:"extra_body,omitempty"`
	DisableStreaming bool              `json:"disable_streaming,omitempty"`
}

type Metering struct {
	// TerminationThreshold is the grace window: a turn terminates the
	// session once balance minus elapsed minutes falls to or below it.
	TerminationThreshold float64 `json:"termination_threshold"`
	// RelinkThresholdMinutes is the billed time under which a session may be
	// linked to a new call.
	RelinkThresholdMinutes int64 `json:"relink_threshold_minutes"`
}

type StreamOptions struct {
	Timeout         Duration `json:"timeout"`
	MaxToolRounds   int      `json:"max_tool_rounds"`
	ConcurrentTools bool     `json:"concurrent_tools,omitempty"`
}

type ParserConfig struct {
	URL          string   `json:"url,omitempty"`
	PollInterval Duration `json:"poll_interval"`
	Timeout      Duration `json:"timeout"`
}

type AgentsConfig struct {
	File            string `json:"file,omitempty"`
	DefaultAgent    string `json:"default_agent,omitempty"`
	DefaultStrategy string `json:"default_strategy,omitempty"`
}

// WorkingDir returns the directory the configuration was loaded from.
func (c *Config) WorkingDir() string {
	return c.workingDir
}

// Resolve expands a "$NAME" reference against the environment the config
// was loaded with. Other values are returned as they are.
func (c *Config) Resolve(value string) (string, error) {
	if len(value) < 2 || value[0] != '$' {
		return value, nil
	}
	name := value[1:]
	v, ok := c.env[name]
	if !ok || v == "" {
		return "", fmt.Errorf("environment variable %q not set", name)
	}
	return v, nil
}

// Duration is a [time.Duration] that reads and writes as "5m", "30s", etc.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Options: &Options{
			DataDirectory: defaultDataDirectory,
			Host:          defaultHost,
		},
		Provider: ProviderConfig{
			APIKey:    "$OPENAI_API_KEY",
			Model:     defaultModel,
			MaxTokens: 1024,
		},
		Metering: Metering{
			TerminationThreshold:   -3,
			RelinkThresholdMinutes: 16,
		},
		Stream: StreamOptions{
			Timeout:       Duration(5 * time.Minute),
			MaxToolRounds: 5,
		},
		Parser: ParserConfig{
			PollInterval: Duration(2 * time.Second),
			Timeout:      Duration(30 * time.Second),
		},
		Agents: AgentsConfig{
			DefaultAgent:    defaultAgentName,
			DefaultStrategy: StrategyQuestionsAndExchanges,
		},
	}
}
