package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Load(dir, "", false, nil)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, defaultDataDirectory), cfg.Options.DataDirectory)
	require.Equal(t, defaultHost, cfg.Options.Host)
	require.Equal(t, -3.0, cfg.Metering.TerminationThreshold)
	require.Equal(t, int64(16), cfg.Metering.RelinkThresholdMinutes)
	require.Equal(t, 5*time.Minute, cfg.Stream.Timeout.Std())
	require.False(t, cfg.Stream.ConcurrentTools)
	require.Equal(t, StrategyQuestionsAndExchanges, cfg.Agents.DefaultStrategy)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`{
		"metering": {"termination_threshold": 1},
		"stream": {"timeout": "45s", "max_tool_rounds": 2},
		"provider": {"model": "gpt-4o"}
	}`), 0o600))

	cfg, err := Load(dir, "", false, []string{
		"JUGGY_PROVIDER_MODEL=gpt-4.1",
		"JUGGY_CONCURRENT_TOOLS=true",
	})
	require.NoError(t, err)

	require.Equal(t, 1.0, cfg.Metering.TerminationThreshold)
	require.Equal(t, 45*time.Second, cfg.Stream.Timeout.Std())
	require.Equal(t, 2, cfg.Stream.MaxToolRounds)
	require.Equal(t, "gpt-4.1", cfg.Provider.Model)
	require.True(t, cfg.Stream.ConcurrentTools)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OPENAI_API_KEY=from-file\nJUGGY_TERMINATION_THRESHOLD=0\n"), 0o600))

	cfg, err := Load(dir, "", true, []string{"OPENAI_API_KEY=from-env"})
	require.NoError(t, err)

	key, err := cfg.Resolve(cfg.Provider.APIKey)
	require.NoError(t, err)
	require.Equal(t, "from-env", key)
	require.Equal(t, 0.0, cfg.Metering.TerminationThreshold)
	require.True(t, cfg.Options.Debug)
}

func TestLoad_RejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir(), "", false, []string{"JUGGY_DEFAULT_STRATEGY=bogus"})
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cfg := &Config{env: map[string]string{"KEY": "value"}}

	v, err := cfg.Resolve("$KEY")
	require.NoError(t, err)
	require.Equal(t, "value", v)

	v, err = cfg.Resolve("literal")
	require.NoError(t, err)
	require.Equal(t, "literal", v)

	_, err = cfg.Resolve("$MISSING")
	require.Error(t, err)
}

func TestInit_CreatesDataDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfg, err := Init(dir, dataDir, false, nil)
	require.NoError(t, err)
	require.Equal(t, dataDir, cfg.Options.DataDirectory)

	_, err = os.Stat(filepath.Join(dataDir, ".gitignore"))
	require.NoError(t, err)
}
