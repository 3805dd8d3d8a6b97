package mtapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/internal/logger"
	"github.com/theoremus-urban-solutions/mtapi/snapshot"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Options configures an Engine
type Options struct {
	MaxTrains         int
	MaxMinutes        time.Duration
	RefreshInterval   time.Duration
	FetchTimeout      time.Duration
	Threaded          bool
	ResponseCacheSize int
	Logger            logger.Logger
	Now               func() time.Time
}

// OptionsFromConfig maps the feed section of the config file onto Options
func OptionsFromConfig(cfg config.FeedConfig, log logger.Logger) Options {
	return Options{
		MaxTrains:         cfg.MaxTrains,
		MaxMinutes:        time.Duration(cfg.MaxMinutes) * time.Minute,
		RefreshInterval:   cfg.RefreshInterval(),
		FetchTimeout:      cfg.FetchTimeout(),
		Threaded:          cfg.Threaded,
		ResponseCacheSize: cfg.ResponseCacheSize,
		Logger:            log,
	}
}

// Engine is the arrival feed engine: a station index, a scheduler that keeps
// a snapshot of the feed current, and the queries over both.
type Engine struct {
	index *stations.Index
	cache *FeedCache
	memo  *responseMemo
	sched *Scheduler
	opts  Options
	log   logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New builds an Engine from the application config: it loads the stations
// file and creates the feed client.
func New(cfg *config.AppConfig, log logger.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, &ConfigError{Op: "new engine", Err: errors.New("nil config")}
	}
	if log == nil {
		log = logger.Nop()
	}
	index, err := stations.LoadFile(cfg.Feed.StationsFile)
	if err != nil {
		return nil, &ConfigError{Op: "load stations", Err: err}
	}
	if cfg.Feed.APIKey == "" && hasRemoteURL(cfg.Feed.URLs) {
		return nil, &ConfigError{Op: "feed client", Err: errors.New("an API key is required for remote feeds (set MTA_KEY)")}
	}
	client := gtfsrt.NewClient(gtfsrt.Options{
		APIKey:  cfg.Feed.APIKey,
		URLs:    cfg.Feed.URLs,
		Timeout: cfg.Feed.RequestTimeout(),
		Retries: cfg.Feed.Retries,
		Logger:  log,
	})
	log.Info("Loaded stations", "file", cfg.Feed.StationsFile, "stations", index.Len(), "routes", len(index.Routes()))
	return NewWithIndex(index, client, OptionsFromConfig(cfg.Feed, log))
}

// NewWithIndex builds an Engine from an already loaded index and any Fetcher
func NewWithIndex(index *stations.Index, fetcher Fetcher, opts Options) (*Engine, error) {
	switch {
	case index == nil:
		return nil, &ConfigError{Op: "new engine", Err: errors.New("nil station index")}
	case fetcher == nil:
		return nil, &ConfigError{Op: "new engine", Err: errors.New("nil fetcher")}
	case opts.MaxTrains <= 0:
		return nil, &ConfigError{Op: "new engine", Err: errors.New("max trains must be positive")}
	case opts.MaxMinutes <= 0:
		return nil, &ConfigError{Op: "new engine", Err: errors.New("max minutes must be positive")}
	case opts.Threaded && opts.RefreshInterval <= 0:
		return nil, &ConfigError{Op: "new engine", Err: errors.New("refresh interval must be positive")}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cache := &FeedCache{}
	e := &Engine{
		index: index,
		cache: cache,
		memo:  newResponseMemo(opts.ResponseCacheSize, opts.RefreshInterval*2),
		opts:  opts,
		log:   opts.Logger,
	}
	e.sched = &Scheduler{
		fetcher:  fetcher,
		index:    index,
		cache:    cache,
		opts:     snapshot.Options{MaxTrains: opts.MaxTrains, MaxMinutes: opts.MaxMinutes},
		interval: opts.RefreshInterval,
		timeout:  opts.FetchTimeout,
		now:      opts.Now,
		log:      opts.Logger,
	}
	return e, nil
}

// Start begins refreshing. Threaded engines refresh in the background until
// Stop; otherwise Start performs one synchronous cycle and returns its error.
func (e *Engine) Start(ctx context.Context) error {
	if !e.opts.Threaded {
		return e.sched.RunOnce(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.stopped = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		e.sched.Run(runCtx)
	}(e.stopped)
	e.log.Info("Scheduler started", "interval", e.opts.RefreshInterval.String())
	return nil
}

// Stop cancels background refreshing and waits for the running cycle to end.
// The published snapshot is left in place.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, stopped := e.cancel, e.stopped
	e.cancel, e.stopped = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// Refresh runs one fetch and build cycle now
func (e *Engine) Refresh(ctx context.Context) error {
	return e.sched.RunOnce(ctx)
}

// Generation returns the generation of the published snapshot, 0 before the
// first successful fetch.
func (e *Engine) Generation() uint64 {
	if s := e.cache.Load(); s != nil {
		return s.Generation
	}
	return 0
}

// Index returns the station index
func (e *Engine) Index() *stations.Index { return e.index }

func hasRemoteURL(urls []string) bool {
	for _, u := range urls {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return true
		}
	}
	return false
}
