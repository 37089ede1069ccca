package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/log/v2"
	"github.com/juggyai/juggy/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	serverCmd.Flags().Bool("background", false, "Detach from the terminal and run in the background")
	serverCmd.AddCommand(serverStopCmd, serverStatusCmd)
	rootCmd.AddCommand(serverCmd)
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask the running server to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		if err := c.ShutdownServer(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("juggy server is shutting down")
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is up and what it runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := c.Health(ctx); err != nil {
			return fmt.Errorf("server is not reachable: %w", err)
		}
		vi, err := c.VersionInfo(ctx)
		if err != nil {
			return err
		}
		cfg, err := c.GetConfig(ctx)
		if err != nil {
			return err
		}
		turns, err := c.GetTurns(ctx)
		if err != nil {
			return err
		}

		fmt.Println(lipgloss.JoinVertical(lipgloss.Left,
			heading(infoTitle, "Server"),
			"",
			field("Status", infoSuccess.Render("running")),
			field("Version", fmt.Sprintf("%s (%s)", vi.Version, vi.Commit)),
			field("Go", vi.GoVersion),
			field("Platform", vi.Platform),
			field("Model", cfg.Provider.Model),
			field("Streaming Turns", fmt.Sprintf("%d", len(turns))),
		))
		return nil
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the juggy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if background, _ := cmd.Flags().GetBool("background"); background {
			return startDetached()
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := log.New(os.Stderr)
		logger.SetReportTimestamp(true)
		slog.SetDefault(slog.New(logger))
		if cfg.Options.Debug {
			logger.SetLevel(log.DebugLevel)
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.Options.Host
		}
		hostURL, err := server.ParseHostURL(host)
		if err != nil {
			return fmt.Errorf("invalid server host: %v", err)
		}

		a, err := setupApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		srv := server.NewServer(a, hostURL.Scheme, hostURL.Host)
		srv.SetLogger(slog.Default())
		slog.Info("Starting juggy server...", "addr", host, "model", cfg.Provider.Model)

		errch := make(chan error, 1)
		sigch := make(chan os.Signal, 1)
		sigs := []os.Signal{os.Interrupt}
		sigs = addSignals(sigs)
		signal.Notify(sigch, sigs...)

		go func() {
			errch <- srv.ListenAndServe()
		}()

		select {
		case <-sigch:
			slog.Info("Received interrupt signal...")
		case err = <-errch:
			if err != nil && !errors.Is(err, server.ErrServerClosed) {
				_ = srv.Close()
				slog.Error("Server error", "error", err)
				return fmt.Errorf("server error: %v", err)
			}
		}

		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		slog.Info("Shutting down...")

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown server", "error", err)
			return fmt.Errorf("failed to shutdown server: %v", err)
		}

		return nil
	},
}

// startDetached re-runs the current command line without --background as
// a process of its own.
func startDetached() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %v", err)
	}
	args := slices.DeleteFunc(slices.Clone(os.Args[1:]), func(arg string) bool {
		return arg == "--background" || arg == "--background=true"
	})

	c := exec.Command(exe, args...)
	detachProcess(c)
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start server: %v", err)
	}
	fmt.Printf("juggy server started in the background (pid %d)\n", c.Process.Pid)
	return c.Process.Release()
}
