// Command http-caching runs a caching reverse proxy in front of a
// single origin. Caching decisions follow RFC 9111; every response
// carries a Cache-Status header explaining what the cache did.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpcaching "github.com/johtso/http-caching"
	"github.com/johtso/http-caching/cache"
	"github.com/johtso/http-caching/cache/dynamodb"
	"github.com/johtso/http-caching/cache/memory"
	"github.com/johtso/http-caching/cache/postgres"
	"github.com/johtso/http-caching/cache/redis"
	"github.com/johtso/http-caching/cache/sqlite"
)

var (
	configFilenameFlag string
	portFlag           int
	originFlag         string
	providerFlag       string
	sharedFlag         bool
	verbosityTraceFlag bool

	// set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Storage provider to use (overrides config)")
	flag.BoolVar(&sharedFlag, "shared", false, "Run as a shared cache")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).
		Output(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Str("version", version).Logger()

	config := Config{Port: portFlag, Provider: ProviderConfig{Name: "sqlite", File: "cache.db"}}
	if configFilenameFlag != "" {
		fileConfig, err := getConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read config file")
		}
		config = fileConfig
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if providerFlag != "" {
		config.Provider.Name = providerFlag
	}
	if sharedFlag {
		config.Shared = true
	}
	if config.Port == 0 {
		config.Port = portFlag
	}
	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}

	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin URL")
	}

	store, err := newProvider(config.Provider)
	if err != nil {
		log.Fatal().Err(err).Str("provider", config.Provider.Name).Msg("Could not set up storage")
	}

	cachingConfig := httpcaching.Config{
		Cache:  store,
		Shared: config.Shared,
		Logger: &log.Logger,
	}
	if config.DefaultMaxAge > 0 {
		cachingConfig.Heuristic = httpcaching.ExpireAfter{Delta: time.Duration(config.DefaultMaxAge)}
	}
	transport := httpcaching.New(cachingConfig)

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(originURL)
			r.Out.Host = originURL.Host
		},
		Transport: transport,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/-/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Handle("/*", proxy)

	log.Info().
		Int("port", config.Port).
		Str("origin", originURL.String()).
		Str("provider", config.Provider.Name).
		Bool("shared", config.Shared).
		Msg("Proxying")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), router); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func newProvider(config ProviderConfig) (cache.Cache, error) {
	switch config.Name {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(config.File)
	case "redis":
		return redis.New(goredis.NewClient(&goredis.Options{Addr: config.Addr}), 0), nil
	case "postgres":
		db, err := sql.Open("postgres", config.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.New(context.Background(), db, &postgres.Config{DeleteExpiredItems: true})
	case "dynamodb":
		return dynamodb.NewFromDefaultConfig(context.Background(), dynamodb.Config{Table: config.Table})
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Name)
	}
}
