package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/juggyai/juggy/internal/app"
	"github.com/juggyai/juggy/internal/client"
	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().StringP("data-dir", "D", "", "Custom juggy data directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("host", "H", "", "Server host (TCP or Unix socket), defaults to options.host")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
}

var rootCmd = &cobra.Command{
	Use:   "juggy",
	Short: "Interview session orchestrator",
	Long: heredoc.Doc(`
		Juggy runs AI mock interviews behind a voice platform. It serves an OpenAI
		compatible chat completions endpoint, meters every turn against the
		candidate's credits and keeps the interview state of each session.
	`),
	Example: heredoc.Doc(`
		# Start the server
		juggy server

		# Start the server with debug logging in the background
		juggy server -d --background

		# Create an account with 30 minutes of credit and open a session
		juggy account create --credits 30
		juggy session create --account <account-id> < contexts.json

		# Link the session to a call and send a turn
		juggy session link <session-id> <call-id>
		juggy chat <call-id> "Hi, I am ready."

		# Finish and analyse the session
		juggy session end <session-id>
		juggy session analyse <session-id>
	`),
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the working directory and loads the configuration,
// creating the data directory when needed.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cwd, err := ResolveCwd(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Init(cwd, dataDir, debug, os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupApp loads the configuration, connects to the database and builds
// the application. The caller owns the returned app and must shut it down.
func setupApp(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	ctx := cmd.Context()

	// Connect to DB; this will also run migrations.
	conn, err := db.Connect(ctx, cfg.Options.DataDirectory)
	if err != nil {
		return nil, err
	}

	p, err := provider.NewProvider(cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set up provider: %w", err)
	}

	appInstance, err := app.New(ctx, conn, cfg, p)
	if err != nil {
		slog.Error("Failed to create app instance", "error", err)
		conn.Close()
		return nil, err
	}
	return appInstance, nil
}

// setupClient returns a client for the server named by --host or the
// configured options.host.
func setupClient(cmd *cobra.Command) (*client.Client, error) {
	host, _ := cmd.Flags().GetString("host")
	if host == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		log.Setup(cfg.LogFile(), cfg.Options.Debug)
		host = cfg.Options.Host
	}
	c, err := client.HostClient(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %v", err)
	}
	return c, nil
}

// MaybeReadStdin returns what is piped into the process, or fallback when
// stdin is a terminal.
func MaybeReadStdin(fallback string) (string, error) {
	if term.IsTerminal(os.Stdin.Fd()) {
		return fallback, nil
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return fallback, err
	}
	if fi.Mode()&os.ModeNamedPipe == 0 && !fi.Mode().IsRegular() {
		return fallback, nil
	}
	bts, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fallback, err
	}
	if len(bts) == 0 {
		return fallback, nil
	}
	return string(bts), nil
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
