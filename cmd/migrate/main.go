// Command migrate applies, inspects and rolls back the pipal schema.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          run gorm AutoMigrate over every model
//	migrate status        print the schema policy and pending migrations
//	migrate down VERSION  roll back one applied migration
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"pipal/internal/config"
	"pipal/internal/database"
	"pipal/internal/middleware"

	"gorm.io/gorm"
)

type invocation struct {
	cfg     *config.Config
	db      *gorm.DB
	version int
}

type migrateCommand struct {
	needsVersion bool
	exec         func(ctx context.Context, in invocation) error
}

var commands = map[string]migrateCommand{
	"up": {exec: func(ctx context.Context, in invocation) error {
		if err := database.RunMigrations(ctx, in.db); err != nil {
			return err
		}
		middleware.Logger.Info("sql migrations applied")
		return nil
	}},
	"auto": {exec: func(ctx context.Context, in invocation) error {
		in.cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, in.db, in.cfg); err != nil {
			return err
		}
		middleware.Logger.Info("auto migration applied")
		return nil
	}},
	"status": {exec: func(ctx context.Context, in invocation) error {
		st, err := database.GetSchemaStatus(ctx, in.db, in.cfg)
		if err != nil {
			return err
		}
		middleware.Logger.Info("schema status",
			slog.String("mode", st.Mode),
			slog.String("env", st.Environment),
			slog.Bool("run_sql", st.WillRunSQL),
			slog.Bool("run_auto", st.WillRunAutoMigrate),
			slog.Int("applied", len(st.AppliedVersions)),
			slog.Int("pending", len(st.PendingMigrations)),
		)
		for _, m := range st.PendingMigrations {
			middleware.Logger.Info("pending migration", slog.String("name", m.String()))
		}
		return nil
	}},
	"down": {needsVersion: true, exec: func(ctx context.Context, in invocation) error {
		if err := database.RollbackMigration(ctx, in.db, in.version); err != nil {
			return err
		}
		middleware.Logger.Info("migration rolled back", slog.Int("version", in.version))
		return nil
	}},
}

func usage() error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("usage: migrate <%s> [version]", strings.Join(names, "|"))
}

// parseArgs resolves the command before any connection is opened.
func parseArgs(args []string) (string, migrateCommand, int, error) {
	if len(args) == 0 {
		return "", migrateCommand{}, 0, usage()
	}
	name := strings.ToLower(strings.TrimSpace(args[0]))
	cmd, ok := commands[name]
	if !ok {
		return "", migrateCommand{}, 0, usage()
	}
	if !cmd.needsVersion {
		return name, cmd, 0, nil
	}
	if len(args) < 2 {
		return "", migrateCommand{}, 0, fmt.Errorf("usage: migrate %s <version>", name)
	}
	version, err := strconv.Atoi(args[1])
	if err != nil || version <= 0 {
		return "", migrateCommand{}, 0, fmt.Errorf("invalid version %q", args[1])
	}
	return name, cmd, version, nil
}

func run(ctx context.Context, args []string) (err error) {
	name, cmd, version, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		sqlDB, dbErr := db.DB()
		if dbErr == nil {
			err = errors.Join(err, sqlDB.Close())
		}
	}()

	if err := cmd.exec(ctx, invocation{cfg: cfg, db: db, version: version}); err != nil {
		return fmt.Errorf("migrate %s: %w", name, err)
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
