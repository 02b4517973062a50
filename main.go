package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedkit/resolver/internal/config"
	"github.com/feedkit/resolver/internal/extractor"
	"github.com/feedkit/resolver/internal/logging"
	"github.com/feedkit/resolver/internal/resolver"
	"github.com/feedkit/resolver/internal/store"
	"github.com/feedkit/resolver/internal/web"
)

func main() {
	var (
		configPath string
		addr       string
		dbPath     string
		timeout    time.Duration
		limit      int64
		jsonOut    bool
		logLevel   string
		quiet      bool
	)

	flag.StringVar(&configPath, "config", "", "path to TOML config file")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	flag.DurationVar(&timeout, "timeout", 0, "extraction timeout (overrides config)")
	flag.Int64Var(&limit, "limit", 0, "daily resolve limit for free-tier feeds (overrides config)")
	flag.BoolVar(&jsonOut, "json", false, "emit JSON output in one-shot mode")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&quiet, "quiet", false, "suppress log output (errors still shown)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if limit > 0 {
		cfg.DailyLimit = limit
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	var logOut io.Writer = os.Stderr
	if quiet {
		cfg.LogLevel = "error"
	}
	log := logging.Setup(logOut, cfg.LogLevel, cfg.LogJSON)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("opening store")
	}
	defer st.Close()

	// The flag keeps its sub-second precision; it is never rounded into
	// the config's whole-second field.
	extractTimeout := effectiveExtractTimeout(cfg.ExtractTimeoutDuration(), timeout)

	res := resolver.New(resolver.Config{
		Store: st,
		Quota: resolver.NewQuotaPolicy(st, cfg.DailyLimit, nil),
		Extractors: extractor.NewRegistry(
			extractor.NewYouTube(extractTimeout),
			extractor.NewVimeo(extractTimeout),
		),
		Log:            log,
		ExtractTimeout: extractTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	switch len(args) {
	case 0:
		server := web.New(res, st, log, cfg.PurgeIntervalDuration())
		if err := server.ListenAndServe(ctx, cfg.Addr); err != nil && ctx.Err() == nil {
			log.WithError(err).Fatal("server failed")
		}
	case 2:
		url, err := res.Resolve(ctx, args[0], args[1])
		if err != nil {
			if jsonOut {
				writeJSONError(args[0], args[1], err)
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(resolver.ExitCode(err))
		}
		fmt.Println(url)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [options] [<feedID> <videoID>]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
}

// effectiveExtractTimeout picks the flag override when set, otherwise the
// configured value.
func effectiveExtractTimeout(fromConfig, fromFlag time.Duration) time.Duration {
	if fromFlag > 0 {
		return fromFlag
	}
	return fromConfig
}

func writeJSONError(feedID, videoID string, err error) {
	payload := struct {
		Type     string `json:"type"`
		Feed     string `json:"feed"`
		Video    string `json:"video"`
		Category string `json:"category"`
		Error    string `json:"error"`
	}{
		Type:     "error",
		Feed:     feedID,
		Video:    videoID,
		Category: string(resolver.CategoryOf(err)),
		Error:    err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
