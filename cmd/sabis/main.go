package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/mcp"
	"github.com/sabis-tools/sabis/internal/ops"
	"github.com/sabis-tools/sabis/internal/portal"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"assignments": true, "exams": true, "grade": true, "calendar": true,
	"snapshots": true, "digest": true, "serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ____    _    ____ ___ ____
  / ___|  / \  | __ )_ _/ ___|
  \___ \ / _ \ |  _ \| |\___ \
   ___) / ___ \| |_) | | ___) |
  |____/_/   \_\____/___|____/

  Assignment and quiz deadlines from the SABIS portal

  Usage: sabis <command> [options]
         sabis --help

  MCP server mode requires piped input.`)
}

// newPortal builds the portal client from cfg. A configured Redis URL shares
// class averages between runs; the returned func releases it.
func newPortal(ctx context.Context, cfg *config.Config) (*portal.Client, func(), error) {
	extractOpts, err := ops.ExtractOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := portal.Options{
		HomeURL:       cfg.HomeURL,
		ExamURL:       cfg.ExamURL,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.RequestTimeout(),
		RetryAttempts: cfg.RetryAttempts,
		Cookies:       cfg.Cookie(),
		Extract:       extractOpts,
	}

	closer := func() {}
	if cfg.RedisURL != "" {
		cache, err := portal.NewRedisCache(ctx, cfg.RedisURL, portal.DefaultAverageTTL)
		if err != nil {
			logger.Error.Printf("class average cache disabled: %v", err)
		} else {
			opts.Averages = cache
			closer = func() { _ = cache.Close() }
		}
	}

	client, err := portal.New(opts)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatalf("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatalf("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, config.DirName)

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithProject(baseDir, cwd)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Info.Printf("WARNING: unknown tools in disabled_tools: %s", strings.Join(unknown, ", "))
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	client, closePortal, err := newPortal(context.Background(), cfg)
	if err != nil {
		fatalf("failed to create portal client: %v", err)
	}
	defer closePortal()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg, client)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'sabis --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(database, cfg, client, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
