package cmd

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/log"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateToCmd)
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long:  `Apply, roll back or inspect the embedded database migrations. The server applies pending migrations on start, so these are only needed for maintenance.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(conn *sql.DB) error { return goose.Up(conn, db.Migrations) })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(conn *sql.DB) error { return goose.Down(conn, db.Migrations) })
	},
}

var migrateToCmd = &cobra.Command{
	Use:   "to VERSION",
	Short: "Migrate up or down to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %v", args[0], err)
		}
		return withMigrations(cmd, func(conn *sql.DB) error {
			current, err := goose.GetDBVersion(conn)
			if err != nil {
				return err
			}
			if version < current {
				return goose.DownTo(conn, db.Migrations, version)
			}
			return goose.UpTo(conn, db.Migrations, version)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrations(cmd, func(conn *sql.DB) error { return goose.Status(conn, db.Migrations) })
	},
}

// withMigrations opens the database without migrating it and runs fn
// with goose pointed at the embedded migrations.
func withMigrations(cmd *cobra.Command, fn func(conn *sql.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Setup(cfg.LogFile(), cfg.Options.Debug)

	conn, err := db.Open(cmd.Context(), cfg.Options.DataDirectory)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.SetupGoose(); err != nil {
		return err
	}
	return fn(conn)
}
