package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/taskboard/internal/infrastructure/database/postgres"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

// Migrator applies schema migrations to the database at dsn.
type Migrator interface {
	Up(dsn string) error
	Down(dsn string, steps int) error
	Status(dsn string) (version uint, dirty bool, err error)
	Force(dsn string, version int) error
}

type postgresMigrator struct{}

func (postgresMigrator) Up(dsn string) error             { return postgres.RunMigrations(dsn) }
func (postgresMigrator) Down(dsn string, steps int) error { return postgres.RollbackMigration(dsn, steps) }
func (postgresMigrator) Status(dsn string) (uint, bool, error) {
	return postgres.MigrationStatus(dsn)
}
func (postgresMigrator) Force(dsn string, version int) error {
	return postgres.ForceMigrationVersion(dsn, version)
}

func newMigrateCmd(m Migrator) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cliCtx, dsn, err := migrationDSN(cmd)
				if err != nil {
					return err
				}
				if err := m.Up(dsn); err != nil {
					return err
				}
				cliCtx.Logger.Info("migrations applied")
				return reportStatus(cmd, m, dsn)
			},
		},
		&cobra.Command{
			Use:   "down [N]",
			Short: "Roll back N migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return errors.New(errors.ErrCodeValidation, "invalid step count").
							WithDetail(fmt.Sprintf("expected a positive integer, got %q", args[0]))
					}
					steps = n
				}
				cliCtx, dsn, err := migrationDSN(cmd)
				if err != nil {
					return err
				}
				if err := m.Down(dsn, steps); err != nil {
					return err
				}
				cliCtx.Logger.Info("migrations rolled back", logging.Int("steps", steps))
				return reportStatus(cmd, m, dsn)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, dsn, err := migrationDSN(cmd)
				if err != nil {
					return err
				}
				return reportStatus(cmd, m, dsn)
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil || version < -1 {
					return errors.New(errors.ErrCodeValidation, "invalid version").
						WithDetail(fmt.Sprintf("expected an integer >= -1, got %q", args[0]))
				}
				_, dsn, err := migrationDSN(cmd)
				if err != nil {
					return err
				}
				if err := m.Force(dsn, version); err != nil {
					return err
				}
				return reportStatus(cmd, m, dsn)
			},
		},
	)
	return cmd
}

// MigrationState is the output of the migrate subcommands.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// RenderText prints the version line.
func (s MigrationState) RenderText() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty)\n", s.Version)
	}
	return fmt.Sprintf("schema version %d\n", s.Version)
}

func reportStatus(cmd *cobra.Command, m Migrator, dsn string) error {
	version, dirty, err := m.Status(dsn)
	if err != nil {
		return err
	}
	return PrintResult(cmd, MigrationState{Version: version, Dirty: dirty})
}

func migrationDSN(cmd *cobra.Command) (*CLIContext, string, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, "", err
	}
	if cliCtx.Config.Database.Driver != "postgres" {
		return nil, "", errors.New(errors.ErrCodeValidation, "migrations need the postgres driver").
			WithDetail(fmt.Sprintf("database.driver is %q", cliCtx.Config.Database.Driver))
	}
	return cliCtx, postgres.ConfigFrom(cliCtx.Config.Database).DSN(), nil
}

//Personal.AI order the ending
