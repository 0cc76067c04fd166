package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionkit"
	"github.com/MrEthical07/sessionkit/directory/memory"
	"github.com/MrEthical07/sessionkit/directory/postgres"
	"github.com/MrEthical07/sessionkit/httpapi"
	"github.com/MrEthical07/sessionkit/internal/config"
	"github.com/MrEthical07/sessionkit/internal/logging"
	"github.com/MrEthical07/sessionkit/internal/security"
	promexport "github.com/MrEthical07/sessionkit/metrics/export/prometheus"
	"github.com/MrEthical07/sessionkit/notify/logsink"
	"github.com/MrEthical07/sessionkit/notify/smtp"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API under /api/v1/auth together with /metrics and
/healthz. With --dev the server runs against an in-process Redis, an
in-memory account directory and a notifier that logs outbound mail.`,
		RunE: runServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	f, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	applyDevDefaults(&f)
	if err := f.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup(f.Logging(version), cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, f, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	engine, err := buildEngine(f, b, logger)
	if err != nil {
		return err
	}

	report := security.BuildReport(engine.Config(), f.Dev)
	logger.Info("security posture", report.LogAttrs()...)
	for _, w := range report.Warnings() {
		logger.Warn("security posture", "warning", w)
	}

	handler, err := newMux(engine, f, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              f.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", f.Listen, "dev", f.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("addr", f.Listen).Wrap(err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	logger.Info("server stopped")
	return nil
}

// applyDevDefaults fills the values a local run cannot be expected to
// provide. It does nothing outside dev mode.
func applyDevDefaults(f *config.File) {
	if !f.Dev {
		return
	}
	if f.Auth.JWT.Secret == "" && f.Auth.JWT.PrivateKeyFile == "" {
		key := make([]byte, 32)
		_, _ = rand.Read(key)
		f.Auth.JWT.Secret = hex.EncodeToString(key)
	}
	if f.Auth.Verification.AppURL == "" {
		_, port, err := net.SplitHostPort(f.Listen)
		if err != nil || port == "" {
			port = "8080"
		}
		f.Auth.Verification.AppURL = "http://localhost:" + port
	}
}

// backends holds the engine's collaborators and how to release them.
type backends struct {
	redis     redis.UniversalClient
	directory sessionkit.AccountDirectory
	notifier  sessionkit.Notifier
	closers   []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, f config.File, logger *slog.Logger) (*backends, error) {
	if f.Dev {
		return openDevBackends(logger)
	}

	b := &backends{}

	rdb := redis.NewClient(&redis.Options{
		Addr:     f.Redis.Addr,
		Password: f.Redis.Password,
		DB:       f.Redis.DB,
	})
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", f.Redis.Addr).Wrap(err)
	}
	b.redis = rdb

	pool, err := pgxpool.New(ctx, f.DatabaseURL)
	if err != nil {
		b.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	b.closers = append(b.closers, pool.Close)
	if err := pool.Ping(ctx); err != nil {
		b.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	b.directory = postgres.New(pool)

	sender, err := smtp.New(f.SMTP)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.notifier = sender

	return b, nil
}

func openDevBackends(logger *slog.Logger) (*backends, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("mode", "dev").Wrap(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger.Warn("dev mode: accounts and sessions are kept in memory and mail is logged")

	return &backends{
		redis:     rdb,
		directory: memory.New(),
		notifier:  logsink.New(logger, true),
		closers:   []func(){mr.Close, func() { _ = rdb.Close() }},
	}, nil
}

func buildEngine(f config.File, b *backends, logger *slog.Logger) (*sessionkit.Engine, error) {
	cfg, err := f.Engine()
	if err != nil {
		return nil, err
	}

	engine, err := sessionkit.New().
		WithConfig(cfg).
		WithRedis(b.redis).
		WithDirectory(b.directory).
		WithNotifier(b.notifier).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	return engine, nil
}

// newMux mounts the auth API, the Prometheus scrape endpoint and a
// liveness probe.
func newMux(engine *sessionkit.Engine, f config.File, logger *slog.Logger) (http.Handler, error) {
	mux := http.NewServeMux()

	mux.Handle(httpapi.Prefix+"/", httpapi.New(engine, httpapi.Options{
		RefreshCookie:     engine.Config().RefreshCookie,
		TrustProxyHeaders: f.TrustProxyHeaders,
		Logger:            logger,
	}))

	metricsHandler, err := promexport.Handler(promexport.NewCollector(engine))
	if err != nil {
		return nil, oops.Code("METRICS_SETUP_FAILED").Wrap(err)
	}
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return mux, nil
}
