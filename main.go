package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"local.dev/gymmit/internal/config"
	"local.dev/gymmit/internal/docstore"
	"local.dev/gymmit/internal/httpx"
	"local.dev/gymmit/internal/identity"
	"local.dev/gymmit/internal/logger"
	"local.dev/gymmit/internal/metrics"
	"local.dev/gymmit/internal/session"
	"local.dev/gymmit/internal/thread"
	"local.dev/gymmit/internal/topics"
)

func main() {
	log := logger.SetupDefault(os.Stdout)
	if err := run(log); err != nil {
		log.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app *firebase.App
	if cfg.NeedsFirebase() {
		if app, err = config.NewFirebaseApp(ctx, cfg); err != nil {
			return err
		}
	}

	raw, closeStore, err := openStore(ctx, cfg, app)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store := docstore.Instrument(raw, metrics.NewCollector(reg))

	gw, err := newGateway(ctx, cfg, app)
	if err != nil {
		return err
	}
	sess := session.NewController(gw, store, log)
	sess.Start(ctx)
	defer sess.Close()

	appCtx := &httpx.AppCtx{
		Session:  sess,
		Store:    store,
		Topics:   topics.NewManager(store, log),
		Thread:   thread.NewManager(store, log),
		Log:      log,
		Metrics:  metrics.Handler(reg),
		Debounce: cfg.UsernameDebounce,
		Origin:   cfg.AllowedOrigin,
		BaseCtx:  ctx,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(appCtx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("store", cfg.StoreBackend),
			slog.Bool("no_auth", cfg.NoAuth),
			slog.String("data_dir", cfg.DataDir),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg config.Config, app *firebase.App) (docstore.Store, io.Closer, error) {
	if cfg.StoreBackend == config.BackendFile {
		if err := config.EnsureDir(cfg.DataDir); err != nil {
			return nil, nil, err
		}
		m, err := docstore.OpenFile(cfg.StoreFile)
		if err != nil {
			return nil, nil, err
		}
		return m, nopCloser{}, nil
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, err
	}
	fs := docstore.NewFirestore(client)
	return fs, fs, nil
}

func newGateway(ctx context.Context, cfg config.Config, app *firebase.App) (identity.Gateway, error) {
	if cfg.NoAuth {
		return identity.NewDev(), nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return identity.NewFirebase(client), nil
}
