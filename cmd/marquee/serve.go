package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"marquee/api"
	"marquee/config"
	"marquee/handlers"
	"marquee/internal/logging"
	"marquee/internal/ranking"
	"marquee/services/catalog"
	"marquee/services/sessions"
)

const shutdownGrace = 10 * time.Second

var serveFlags struct {
	Listen  string
	LogFile string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Every client creates a session, feeds it raw search box
input and follows the search, trending and details state over polling
endpoints or the server-sent event stream.

Examples:
  marquee serve
  marquee serve --listen 127.0.0.1:8080 --log-file /var/log/marquee.log
  marquee serve --ranking-backend bolt --ranking-path ./ranking.bolt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveFlags.Listen != "" {
			cfg.Listen = serveFlags.Listen
		}
		if serveFlags.LogFile != "" {
			cfg.LogFile = serveFlags.LogFile
		}
		if err := cfg.RequireToken(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// server bundles everything serve starts so it can be torn down in order.
type server struct {
	http     *http.Server
	store    ranking.Store
	sessions *sessions.Service
	limiter  *api.IPRateLimiter
}

func newServer(cfg *config.Config, c sessions.Catalog) (*server, error) {
	store, err := ranking.Open(cfg.RankingBackend, cfg.RankingPath)
	if err != nil {
		return nil, fmt.Errorf("opening ranking store: %w", err)
	}

	svc := sessions.NewService(c, store, sessions.Options{
		Debounce:       cfg.Debounce,
		RequestTimeout: cfg.RequestTimeout,
		IdleTimeout:    cfg.SessionIdleTimeout,
		TopN:           cfg.TrendingTopN,
	})
	limiter := api.NewIPRateLimiter(rate.Limit(cfg.HTTPRatePerSecond), cfg.HTTPBurst)

	r := api.NewRouter(cfg.AllowedOrigins)
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(limiter.Middleware())
	apiRouter.HandleFunc("/version", handlers.GetVersion).Methods(http.MethodGet)
	handlers.NewSessionsHandler(svc).Register(apiRouter)

	// Event streams only end when their request context does, so Shutdown
	// cancels the base context instead of waiting out the grace period.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	httpSrv.RegisterOnShutdown(cancelBase)

	return &server{
		http:     httpSrv,
		store:    store,
		sessions: svc,
		limiter:  limiter,
	}, nil
}

// close releases the session pipelines before the store they write to.
func (s *server) close() {
	s.sessions.Shutdown()
	s.limiter.Stop()
	if err := s.store.Close(); err != nil {
		log.Printf("[ranking] close store: %v", err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logCloser, err := logging.Setup(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("configuring log file: %w", err)
	}
	defer logCloser.Close()

	client := catalog.NewClient(catalog.Options{
		Token:         cfg.TMDBToken,
		BaseURL:       cfg.TMDBBaseURL,
		Language:      cfg.Language,
		Timeout:       cfg.RequestTimeout,
		RatePerSecond: cfg.RatePerSecond,
		RetryAttempts: cfg.RetryAttempts,
		CacheDir:      cfg.CacheDir,
		CacheTTLHours: cfg.CacheTTLHours,
	})

	srv, err := newServer(cfg, client)
	if err != nil {
		return err
	}
	defer srv.close()

	if cfg.ConfigPath != "" {
		log.Printf("[marquee] loaded config from %s", cfg.ConfigPath)
	}
	log.Printf("[marquee] version %s listening on %s (token %s, ranking %s at %s)",
		handlers.CurrentVersion(), cfg.Listen, cfg.RedactedToken(), cfg.RankingBackend, cfg.RankingPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[marquee] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("[marquee] http shutdown: %v", err)
	}
	return nil
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.Listen, "listen", "",
		"listen address (default "+config.DefaultListen+")")
	f.StringVar(&serveFlags.LogFile, "log-file", "",
		"also write logs to this rotated file")
	rootCmd.AddCommand(serveCmd)
}
