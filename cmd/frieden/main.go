package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/louispotok/frieden/internal/capture"
	"github.com/louispotok/frieden/internal/config"
	"github.com/louispotok/frieden/internal/freebusy"
	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
	"github.com/louispotok/frieden/internal/web"
)

// warmDays is the range primed into the ICS cache on each refresh.
const warmDays = 7

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	once       bool
	noCapture  bool
}

func main() {
	appLog.Info("frieden starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc := resolveLocation(conf.Timezone)
	clock := timeutil.NewClock(loc, nil)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	cacheDir := conf.CacheDir
	if flags.debug {
		cacheDir = "./cache"
	}

	fetcher := freebusy.NewFetcher(filepath.Join(cacheDir, "ics-cache"))
	sources := icsSources(conf)
	service := freebusy.NewService(fetcher, sources)

	refresh := func() {
		runRefresh(ctx, clock, service, conf, cacheDir, flags)
	}

	if flags.once {
		refresh()
		return
	}

	srv := web.NewServer(conf, clock, service, flags.debug)
	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()

	// Warm the cache shortly after startup so the first client request
	// does not pay the full fetch cost.
	go refresh()

	<-ctx.Done()

	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	appLog.Info("frieden exiting")
}

// runRefresh warms the freebusy cache for the coming days and, unless
// disabled, recaptures the timeline preview PNG.
func runRefresh(ctx context.Context, clock *timeutil.Clock, service *freebusy.Service, conf *config.Config, cacheDir string, flags flagConfig) {
	start := clock.Dfloor(clock.Now())
	end := start + model.Instant(warmDays*timeutil.Day)

	byCalendar := service.Busy(ctx, start, end)
	total := 0
	for _, ivs := range byCalendar {
		total += len(ivs)
	}
	appLog.Info("refresh completed",
		"calendars", len(byCalendar),
		"busy_intervals", total,
	)

	if flags.noCapture || flags.once {
		return
	}

	url := fmt.Sprintf("http://%s/timeline?days=%d", conf.Listen, warmDays)
	err := capture.TimelinePNG(ctx, capture.Options{
		URL:        url,
		OutputPath: filepath.Join(cacheDir, "preview.png"),
		Width:      conf.Preview.Width,
		Height:     conf.Preview.Height,
	})
	if err != nil {
		appLog.Error("preview capture failed", err, "url", url)
	}
}

func icsSources(conf *config.Config) []freebusy.Source {
	sources := make([]freebusy.Source, 0, len(conf.ICS))
	for _, src := range conf.ICS {
		if src.URL == "" {
			continue
		}
		id := src.ID
		if id == "" {
			if src.Name != "" {
				id = src.Name
			} else {
				id = src.URL
			}
		}
		sources = append(sources, freebusy.Source{ID: id, URL: src.URL})
	}
	return sources
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/frieden/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and local cache paths")
	flag.BoolVar(&cfg.once, "once", false, "Run one cache refresh and exit")
	flag.BoolVar(&cfg.noCapture, "no-capture", false, "Skip the preview PNG capture on refresh")

	flag.Parse()
	return cfg
}
