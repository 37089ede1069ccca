package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/log"
	"github.com/spf13/cobra"
)

const infoWidth = 80

var (
	infoTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF60FF"))
	infoSection = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6B50FF"))
	infoSubtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#858392"))
	infoText    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DFDBDD"))
	infoMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#605F6B"))
	infoSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#12C78F"))
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration information",
	Long:  `Display information about the current configuration including the active config file, log path, the model provider and the metering rules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := ResolveCwd(cmd)
		if err != nil {
			return err
		}
		dataDir, _ := cmd.Flags().GetString("data-dir")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := config.Load(cwd, dataDir, debug, os.Environ())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		sections := []string{
			heading(infoTitle, "Configuration Information"),
			"",
			renderConfigSection(cfg, findActiveConfigFiles(cwd, dataDir)),
			"",
			renderProviderSection(cfg),
			"",
			renderMeteringSection(cfg),
		}

		output := lipgloss.JoinVertical(lipgloss.Left, sections...)
		fmt.Println(output)
		return nil
	},
}

func heading(style lipgloss.Style, title string) string {
	rule := infoWidth - lipgloss.Width(title) - 1
	return style.Render(title) + " " + infoMuted.Render(strings.Repeat("─", max(rule, 0)))
}

func field(name, value string) string {
	return fmt.Sprintf("  %s %s", infoSubtle.Render(name+":"), infoText.Render(value))
}

// findActiveConfigFiles lists the configuration files that exist, in the
// order they are applied.
func findActiveConfigFiles(workingDir, dataDir string) string {
	var found []string
	for _, path := range config.ConfigPaths(workingDir, dataDir) {
		if _, err := os.Stat(path); err == nil {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return "No configuration file found (using defaults)"
	}
	return strings.Join(found, ", ")
}

func renderConfigSection(cfg *config.Config, configFiles string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		field("Configuration Files", configFiles),
		field("Log Path", cfg.LogFile()),
		field("Working Directory", cfg.WorkingDir()),
		field("Data Directory", cfg.Options.DataDirectory),
		field("Host", cfg.Options.Host),
	)
}

func renderProviderSection(cfg *config.Config) string {
	p := cfg.Provider
	key := infoMuted.Render("not set")
	if resolved, err := cfg.Resolve(p.APIKey); err == nil && resolved != "" {
		key = infoSuccess.Render(log.MaskAPIKey(resolved))
	}
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "default"
	}
	streaming := infoSuccess.Render("enabled")
	if p.DisableStreaming {
		streaming = infoMuted.Render("disabled")
	}

	lines := []string{
		heading(infoSection, "Provider"),
		"",
		field("Model", p.Model),
		field("Base URL", baseURL),
		fmt.Sprintf("  %s %s", infoSubtle.Render("API Key:"), key),
		fmt.Sprintf("  %s %s", infoSubtle.Render("Streaming:"), streaming),
	}
	if cfg.Parser.URL != "" {
		lines = append(lines, field("Resume Parser", cfg.Parser.URL))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMeteringSection(cfg *config.Config) string {
	agentsFile := cfg.Agents.File
	if agentsFile == "" {
		agentsFile = "none"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		heading(infoSection, "Sessions"),
		"",
		field("Termination Threshold", fmt.Sprintf("%g credits", cfg.Metering.TerminationThreshold)),
		field("Relink Threshold", fmt.Sprintf("%d minutes", cfg.Metering.RelinkThresholdMinutes)),
		field("Stream Timeout", cfg.Stream.Timeout.Std().String()),
		field("Max Tool Rounds", fmt.Sprintf("%d", cfg.Stream.MaxToolRounds)),
		field("Default Agent", cfg.Agents.DefaultAgent),
		field("Default Strategy", cfg.Agents.DefaultStrategy),
		field("Agents File", agentsFile),
	)
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
