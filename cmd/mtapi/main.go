package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/mtapi"
	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/internal/logger"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

func main() {
	configPath := flag.String("config", "", "config file (default $MTAPI_SETTINGS, ./settings.yml or ./config.yml)")
	mode := flag.String("mode", "serve", "serve|oneshot|cache")
	call := flag.String("call", "routes", "oneshot query: routes|route|id|point")
	feed := flag.String("feed", "", "comma-separated feed URLs or files (overrides config)")
	stationsFile := flag.String("stations", "", "stations file (overrides config)")
	route := flag.String("route", "", "route id for -call=route")
	ids := flag.String("ids", "", "comma-separated station ids for -call=id")
	lat := flag.Float64("lat", 0, "latitude for -call=point")
	lon := flag.Float64("lon", 0, "longitude for -call=point")
	limit := flag.Int("limit", 5, "number of stations for -call=point")
	out := flag.String("out", "stations.gob", "output file for -mode=cache")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *feed != "" {
		cfg.Feed.URLs = strings.Split(*feed, ",")
	}
	if *stationsFile != "" {
		cfg.Feed.StationsFile = *stationsFile
	}

	log := logger.NewFromConfig(logger.Config{
		Level:    cfg.Logging.Level,
		Console:  cfg.Logging.Console,
		FilePath: cfg.Logging.File,
	})

	switch *mode {
	case "serve":
		serve(cfg, log)
	case "oneshot":
		cfg.Feed.Threaded = false
		q := query{call: *call, route: *route, ids: *ids, lat: *lat, lon: *lon, limit: *limit}
		if err := oneshot(cfg, log, q, os.Stdout); err != nil {
			log.Fatal("Oneshot failed", "error", err)
		}
	case "cache":
		if err := writeStationsCache(cfg.Feed.StationsFile, *out); err != nil {
			log.Fatal("Failed to write stations cache", "error", err)
		}
		log.Info("Wrote stations cache", "from", cfg.Feed.StationsFile, "to", *out)
	default:
		log.Fatal("Unknown mode", "mode", *mode)
	}
}

func serve(cfg *config.AppConfig, log logger.Logger) {
	checkServeRefresh(cfg.Feed, log)
	engine, err := mtapi.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create engine", "error", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		log.Warn("Initial feed refresh failed, serving empty arrivals", "error", err)
	}

	srv := mtapi.NewServer(engine, cfg.Server, log)
	srv.Start()
	mtapi.HandleGracefulShutdown(ctx, srv, engine)
}

// writeStationsCache parses a stations source once and stores it as gob
func writeStationsCache(src, dst string) error {
	ix, err := stations.LoadFile(src)
	if err != nil {
		return err
	}
	return stations.SerializeIndexToFile(ix, dst)
}

// checkServeRefresh warns when serve would never refresh after startup.
// It reports whether background refresh is enabled.
func checkServeRefresh(feed config.FeedConfig, log logger.Logger) bool {
	if feed.Threaded {
		return true
	}
	log.Warn("feed.threaded is false: arrivals are fetched once at startup and never refreshed while serving",
		"stations_file", feed.StationsFile)
	return false
}

type query struct {
	call     string
	route    string
	ids      string
	lat, lon float64
	limit    int
}

func oneshot(cfg *config.AppConfig, log logger.Logger, q query, out io.Writer) error {
	engine, err := mtapi.New(cfg, log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Feed.FetchTimeout()+5*time.Second)
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		return err
	}

	var result interface{}
	switch q.call {
	case "routes":
		resp := struct {
			Data    []string   `json:"data"`
			Updated *time.Time `json:"updated"`
		}{Data: engine.GetRoutes()}
		if t, ok := engine.LastUpdate(); ok {
			resp.Updated = &t
		}
		result = resp
	case "route":
		result, err = engine.GetByRoute(q.route)
	case "id":
		result, err = engine.GetByID(strings.Split(q.ids, ","))
	case "point":
		result = engine.GetByPoint(q.lat, q.lon, q.limit)
	default:
		return errors.New("unknown call: " + q.call)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
