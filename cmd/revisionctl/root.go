package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/revision-tracker/internal/config"
	sqliteRepo "github.com/sakif/revision-tracker/internal/repository/sqlite"
	"github.com/sakif/revision-tracker/internal/revision"
	"github.com/sakif/revision-tracker/internal/service"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE. The caller of Execute closes it: cobra skips
// post-run hooks when a command fails.
type app struct {
	v       *viper.Viper
	userID  string
	verbose bool

	logger    *slog.Logger
	db        *sqliteRepo.DB
	questions *service.QuestionService
	settings  *service.SettingsService
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "revisionctl",
		Short: "Inspect and maintain a revision tracker database",
		Long: `revisionctl works directly on the SQLite database the server uses.
Question commands act on one account, chosen with --user; run
"revisionctl users" to find its id.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == cmd.Root() || cmd.Name() == "help" {
				return nil
			}
			return a.open(cmd.Context())
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("db", "", "database file (default from DB_PATH, else data/revision.db)")
	flags.String("tz", "", "time zone for day boundaries (default from TIMEZONE, else UTC)")
	flags.StringVar(&a.userID, "user", "", "account id to act on")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	a.v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	a.v.BindPFlag(config.KeyTimezone, flags.Lookup("tz"))

	root.AddCommand(
		newDueCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSettingsCmd(a),
		newUsersCmd(a),
	)
	return root, a
}

// open loads .env, opens the database and builds the services.
func (a *app) open(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	dbPath := a.v.GetString(config.KeyDBPath)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("database %s does not exist", dbPath)
	}
	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.logger.Debug("database opened", slog.String("path", dbPath))

	settings := revision.NewSettings(db)
	if err := settings.Load(ctx); err != nil {
		return err
	}
	a.questions = service.NewQuestionService(db, settings, a.logger)
	a.settings = service.NewSettingsService(settings, a.logger)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// requireUser returns --user, or an error naming the command that needs it.
func (a *app) requireUser() (string, error) {
	if a.userID == "" {
		return "", errors.New(`--user is required; run "revisionctl users" to list account ids`)
	}
	return a.userID, nil
}

// location resolves --tz, falling back to TIMEZONE and then UTC.
func (a *app) location() (*time.Location, error) {
	name := a.v.GetString(config.KeyTimezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", name)
	}
	return loc, nil
}
