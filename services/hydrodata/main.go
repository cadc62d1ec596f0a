package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/config"
)

// Version is injected at build time.
var Version = "0.1.0"

const usage = `hydrodata - hydrological station data tool (ANA/INMET)

Usage:
  hydrodata [-v] [-config file] <command> [flags]

Commands:
  version           print the hydrodata version
  hello [name]      greeting smoke test
  ana-download      download raw ANA archives for one or more stations
  spatial-filter    list the stations inside an area of interest
  stations-import   load a station catalogue into Postgres
  serve             run the station REST API
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("hydrodata", flag.ContinueOnError)
	verbose := global.Bool("v", false, "enable debug logging")
	configPath := global.String("config", "", "path to a YAML config file")
	global.Usage = func() {
		fmt.Fprint(global.Output(), usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}

	setupLogging(*verbose)

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("missing command")
	}
	name, cmdArgs := rest[0], rest[1:]

	// Commands that do not need configuration.
	switch name {
	case "version":
		fmt.Fprintf(out, "hydrodata version: %s\n", Version)
		return nil
	case "hello":
		return runHello(cmdArgs, out)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	switch name {
	case "ana-download":
		return runANADownload(ctx, cfg, cmdArgs, out)
	case "spatial-filter":
		return runSpatialFilter(ctx, cfg, cmdArgs, out)
	case "stations-import":
		return runStationsImport(ctx, cfg, cmdArgs, out)
	case "serve":
		return runServe(ctx, cfg, cmdArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runHello(args []string, out io.Writer) error {
	name := "Mundo"
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	fmt.Fprintf(out, "Olá, %s! O hydrodata está pronto para trabalhar.\n", name)
	return nil
}
