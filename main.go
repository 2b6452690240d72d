// ABOUTME: Entry point for the grainbroker contract book
// ABOUTME: Routes to the MCP server, TUI or CLI commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/grainbroker/charm"
	"github.com/harperreed/grainbroker/cli"
	"github.com/harperreed/grainbroker/config"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/models"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "SQLite database path (default: ~/.local/share/grainbroker/contracts.db)")
	store := flag.String("store", "", "Store backend: sqlite or postgres")
	postgresURL := flag.String("postgres-url", "", "PostgreSQL connection URL")
	sequenceBackend := flag.String("sequence", "", "Contract number allocator: store, redis or badger")
	redisURL := flag.String("redis-url", "", "Redis URL for the redis allocator")
	logMode := flag.String("log", "", "Log mode: dev or prod")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	mirror := flag.Bool("mirror", false, "Snapshot every contract write to the Charm mirror")
	initOnly := flag.Bool("init", false, "Initialize the contract book and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("grainbroker version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.DBPath, *dbPath)
	override(&cfg.Store, *store)
	override(&cfg.PostgresURL, *postgresURL)
	override(&cfg.Sequence, *sequenceBackend)
	override(&cfg.RedisURL, *redisURL)
	override(&cfg.LogMode, *logMode)
	override(&cfg.MetricsAddr, *metricsAddr)
	if *mirror {
		cfg.MirrorEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mirror maintenance talks to Charm only
	if len(args) > 0 && args[0] == "mirror" {
		if err := runMirror(cfg, args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	a, err := openApp(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Failed to open contract book: %v", err)
	}
	defer a.Close()

	if *initOnly {
		zl.Info("contract book initialized", "store", cfg.Store)
		return
	}

	if cfg.MetricsAddr != "" {
		cli.ServeMetrics(ctx, cfg.MetricsAddr, a.registry, zl)
	}

	if err := run(ctx, a, zl, args); err != nil {
		zl.Sync()
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, a *app, zl *logger.Logger, args []string) error {
	svc := a.svc
	out := os.Stdout
	command, commandArgs := args[0], args[1:]

	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, svc, zl, version)

	case "tui":
		return cli.TUICommand(ctx, svc)

	case "web":
		return cli.WebCommand(ctx, svc, zl, commandArgs)

	case "book":
		if len(commandArgs) == 0 {
			return usageError("book requires a subcommand")
		}
		sub, subArgs := commandArgs[0], commandArgs[1:]
		switch sub {
		// Party commands
		case "add-buyer":
			return cli.AddPartyCommand(ctx, svc, models.PartyBuyer, out, subArgs)
		case "add-seller":
			return cli.AddPartyCommand(ctx, svc, models.PartySeller, out, subArgs)
		case "update-buyer":
			return cli.UpdatePartyCommand(ctx, svc, models.PartyBuyer, out, subArgs)
		case "update-seller":
			return cli.UpdatePartyCommand(ctx, svc, models.PartySeller, out, subArgs)
		case "list-buyers":
			return cli.ListPartiesCommand(ctx, svc, models.PartyBuyer, out, subArgs)
		case "list-sellers":
			return cli.ListPartiesCommand(ctx, svc, models.PartySeller, out, subArgs)
		case "delete-buyer":
			return cli.DeletePartyCommand(ctx, svc, models.PartyBuyer, os.Stdin, out, subArgs)
		case "delete-seller":
			return cli.DeletePartyCommand(ctx, svc, models.PartySeller, os.Stdin, out, subArgs)

		// Contract commands
		case "add-contract":
			return cli.AddContractCommand(ctx, svc, out, subArgs)
		case "update-contract":
			return cli.UpdateContractCommand(ctx, svc, out, subArgs)
		case "list-contracts":
			return cli.ListContractsCommand(ctx, svc, out, subArgs)
		case "show-contract":
			return cli.ShowContractCommand(ctx, svc, out, subArgs)
		case "set-status":
			return cli.SetStatusCommand(ctx, svc, out, subArgs)
		case "record-invoice":
			return cli.RecordInvoiceCommand(ctx, svc, out, subArgs)
		case "delete-contract":
			return cli.DeleteContractCommand(ctx, svc, os.Stdin, out, subArgs)
		case "summary":
			return cli.SummaryCommand(ctx, svc, out, subArgs)
		}
		return usageError("unknown book command: " + sub)

	case "viz":
		if len(commandArgs) == 0 {
			return usageError("viz requires a subcommand")
		}
		switch commandArgs[0] {
		case "graph":
			return cli.VizGraphCommand(ctx, svc, out, commandArgs[1:])
		case "dashboard":
			return cli.VizDashboardCommand(ctx, svc, out, commandArgs[1:])
		}
		return usageError("unknown viz command: " + commandArgs[0])
	}

	return usageError("unknown command: " + command)
}

func runMirror(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return usageError("mirror requires a subcommand")
	}
	client, err := openMirrorClient(cfg)
	if err != nil {
		return err
	}

	out := os.Stdout
	switch args[0] {
	case "status":
		return charm.StatusCommand(client, out, args[1:])
	case "sync":
		return charm.SyncCommand(client, out, args[1:])
	case "history":
		return charm.HistoryCommand(client, out, args[1:])
	case "wipe":
		return charm.WipeCommand(client, out, args[1:])
	}
	return usageError("unknown mirror command: " + args[0])
}

func usageError(msg string) error {
	printUsage()
	return fmt.Errorf("%s", msg)
}

func printUsage() {
	fmt.Printf(`grainbroker v%s - Grain contract book

USAGE:
  grainbroker [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       SQLite path (default: ~/.local/share/grainbroker/contracts.db)
  --store <backend>      sqlite (default) or postgres
  --postgres-url <url>   PostgreSQL connection URL
  --sequence <backend>   Contract number allocator: store (default), redis, badger
  --redis-url <url>      Redis URL for the redis allocator
  --log <mode>           dev (default) or prod
  --metrics-addr <addr>  Serve Prometheus metrics, e.g. :9090
  --mirror               Snapshot contract writes to the Charm mirror
  --init                 Initialize the contract book and exit

  Every flag can also be set in .env or the environment as GRAINBROKER_*.

COMMANDS:
  mcp                    Start MCP server for Claude Desktop
  tui                    Interactive contract browser
  web [--port <n>]       Read-only web UI (default port 8080)
  book                   Contract and party commands
  viz                    Visualization commands
  mirror                 Charm mirror maintenance

BOOK COMMANDS:
  grainbroker book add-buyer | add-seller
    --name <name>             Name (required)
    --abn <abn>               ABN
    --email <email>           Email address
    --phone <phone>           Phone number
    --contact <n,e,p[,primary]>  Contact, repeatable

  grainbroker book update-buyer | update-seller [flags] <id|name>
  grainbroker book list-buyers | list-sellers [--query <text>] [--limit <n>]
  grainbroker book delete-buyer | delete-seller [--force] <id|name>

  grainbroker book add-contract     Add a contract (status defaults to Incomplete)
    --status <status>         Draft, Incomplete, Complete or Invoiced
    --date <YYYY-MM-DD>       Contract date
    --buyer <id|name>         Buyer
    --seller <id|name>        Seller
    --tonnes <n>              Tonnes
    --season <season>         Season, e.g. 2024-25
    --brokerage <who>         Buyer, Seller, Buyer & Seller, Seller & Buyer,
                              No Brokerage Payable
    (run with -h for every commercial term flag)

  grainbroker book update-contract [flags] <id|number>
  grainbroker book list-contracts [--status] [--buyer] [--seller] [--season] [--deleted]
  grainbroker book show-contract [--json] [--deleted] <id|number>
  grainbroker book set-status <id|number> <status>
  grainbroker book record-invoice --invoice-id <id> [--invoice-number <n>] <id|number>
  grainbroker book delete-contract [--force] <id|number>
  grainbroker book summary

VIZ COMMANDS:
  grainbroker viz graph [--status] [--buyer] [--seller] [--season] [--output <file>]
  grainbroker viz dashboard

MIRROR COMMANDS:
  grainbroker mirror status | sync | history <id> | wipe [--confirm]

EXAMPLES:
  grainbroker book add-buyer --name "Riverina Grain Co"
  grainbroker book add-contract --status Draft --commodity Wheat
  grainbroker book set-status GB-1001 Complete

`, version)
}
