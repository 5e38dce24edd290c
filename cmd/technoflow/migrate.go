package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BaSui01/technoflow/config"
	"github.com/BaSui01/technoflow/internal/migration"
)

// =============================================================================
// 🗄️ 生成历史表迁移命令
// =============================================================================

// migrateAction 在已打开的迁移器上执行的子命令
type migrateAction func(cli *migration.CLI, ctx context.Context) error

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printMigrateUsage()
		return
	}

	if err := executeMigrate(context.Background(), args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

// executeMigrate 解析子命令与参数后执行
func executeMigrate(ctx context.Context, args []string, out io.Writer) error {
	subcommand, rest := args[0], args[1:]

	var (
		action migrateAction
		all    bool
	)
	switch subcommand {
	case "up":
		action = (*migration.CLI).RunUp
	case "down":
		action = func(cli *migration.CLI, ctx context.Context) error {
			if all {
				return cli.RunDownAll(ctx)
			}
			return cli.RunDown(ctx)
		}
	case "reset":
		action = (*migration.CLI).RunDownAll
	case "status":
		action = (*migration.CLI).RunStatus
	case "version":
		action = (*migration.CLI).RunVersion
	case "info":
		action = (*migration.CLI).RunInfo
	case "goto":
		if len(rest) < 1 {
			return fmt.Errorf("usage: technoflow migrate goto <version>")
		}
		version, err := strconv.ParseUint(rest[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number: %s", rest[0])
		}
		rest = rest[1:]
		action = func(cli *migration.CLI, ctx context.Context) error {
			return cli.RunGoto(ctx, uint(version))
		}
	case "force":
		if len(rest) < 1 {
			return fmt.Errorf("usage: technoflow migrate force <version>")
		}
		version, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", rest[0])
		}
		rest = rest[1:]
		action = func(cli *migration.CLI, ctx context.Context) error {
			return cli.RunForce(ctx, version)
		}
	default:
		return fmt.Errorf("unknown migrate subcommand: %s", subcommand)
	}

	fs := flag.NewFlagSet("migrate "+subcommand, flag.ContinueOnError)
	fs.SetOutput(out)
	if subcommand == "down" {
		fs.BoolVar(&all, "all", false, "Rollback all migrations")
	}
	migrator, err := createMigrator(fs, rest)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(out)
	return action(cli, ctx)
}

// createMigrator creates a migrator from command line flags
func createMigrator(fs *flag.FlagSet, args []string) (migration.Migrator, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *dbType != "" && *dbURL != "" {
		return migration.NewMigratorFromURL(*dbType, *dbURL)
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database)
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Generation history migrations

Usage:
  technoflow migrate <subcommand> [options]

Subcommands:
  up              Apply all pending migrations
  down [--all]    Rollback the last migration, or all of them
  status          Show migration status
  version         Show current migration version
  info            Show a migration summary
  goto <version>  Migrate to a specific version
  force <version> Force set migration version (use with caution)
  reset           Rollback all migrations
  help            Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  technoflow migrate up --config /etc/technoflow/config.yaml
  technoflow migrate status --db-type sqlite --db-url "file:history.db?mode=rwc"
  technoflow migrate goto 1
  technoflow migrate down --all`)
}
