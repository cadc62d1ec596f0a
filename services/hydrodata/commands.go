package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	httpserver "github.com/02loveslollipop/hydrodata/services/hydrodata/http"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/ana"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/config"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/db"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/httpclient"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/models"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/recordstore"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/spatial"
)

const (
	modeReal   = "real"
	modeRecord = "record"
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// buildFetcher returns the fetcher for mode and a function releasing any
// connection it opened.
func buildFetcher(ctx context.Context, cfg config.Config, mode string) (httpclient.Fetcher, func(), error) {
	direct := httpclient.NewDirect(httpclient.DirectOptions{
		Token:     cfg.ANAToken,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	noop := func() {}

	switch strings.ToLower(mode) {
	case modeReal:
		return direct, noop, nil
	case modeRecord:
		store, closeStore, err := openRecordStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return httpclient.NewRecorder(direct, store, nil), closeStore, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %q (want %q or %q)", mode, modeReal, modeRecord)
	}
}

func openRecordStore(ctx context.Context, cfg config.Config) (recordstore.Store, func(), error) {
	if cfg.RecordBackend == config.RecordBackendRedis {
		store, err := recordstore.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	store, err := recordstore.NewDir(cfg.RecordDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func runANADownload(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ana-download", flag.ContinueOnError)
	var stations stringList
	fs.Var(&stations, "s", "ANA station code (repeatable)")
	var mode string
	fs.StringVar(&mode, "mode", modeReal, "HTTP mode: real or record")
	fs.StringVar(&mode, "m", modeReal, "shorthand for -mode")
	extract := fs.Bool("extract", cfg.Extract, "extract the downloaded archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(stations) == 0 {
		return errors.New("at least one station code is required (-s)")
	}

	fetcher, closeFetcher, err := buildFetcher(ctx, cfg, mode)
	if err != nil {
		return err
	}
	defer closeFetcher()

	anaCfg := cfg.ANA()
	anaCfg.Extract = *extract
	client := ana.NewClient(fetcher, anaCfg, nil)

	slog.Info("starting ANA download", "stations", []string(stations), "mode", strings.ToLower(mode))

	paths, err := client.DownloadStationFiles(ctx, stations)
	if err != nil {
		return fmt.Errorf("ANA download failed: %w", err)
	}

	for _, p := range paths {
		fmt.Fprintf(out, "saved: %s\n", p)
	}
	return nil
}

func runSpatialFilter(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("spatial-filter", flag.ContinueOnError)
	areaPath := fs.String("area", "", "area of interest (.geojson, .json or .shp)")
	stationsPath := fs.String("stations", "", "station JSON file (defaults to the Postgres catalogue)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *areaPath == "" {
		return errors.New("-area is required")
	}

	area, err := spatial.LoadArea(*areaPath)
	if err != nil {
		return err
	}

	var stations []models.Station
	if *stationsPath != "" {
		stations, err = models.LoadStationsFile(*stationsPath)
	} else {
		stations, err = catalogueStations(ctx, cfg)
	}
	if err != nil {
		return err
	}

	inside := spatial.FilterContaining(stations, area)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(inside)
}

func catalogueStations(ctx context.Context, cfg config.Config) ([]models.Station, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("no -stations file given and DATABASE_URL is not set")
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ListStations(ctx)
}

func runStationsImport(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stations-import", flag.ContinueOnError)
	file := fs.String("file", "", "station JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	stations, err := models.LoadStationsFile(*file)
	if err != nil {
		return err
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.UpsertStations(ctx, stations); err != nil {
		return err
	}

	fmt.Fprintf(out, "imported %d stations\n", len(stations))
	return nil
}

func runServe(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection error: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	srv := httpserver.New(cfg, store)
	slog.Info("REST API listening", "addr", cfg.ListenAddr())
	return srv.Run(ctx)
}
