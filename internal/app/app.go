// Package app provides the unified application lifecycle for the Vivial
// ingest service.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/bricker/vivial-sub003/internal/api/http"
	"github.com/bricker/vivial-sub003/internal/archive"
	"github.com/bricker/vivial-sub003/internal/config"
	"github.com/bricker/vivial-sub003/internal/control"
	"github.com/bricker/vivial-sub003/internal/ingest"
	"github.com/bricker/vivial-sub003/internal/record"
	"github.com/bricker/vivial-sub003/internal/redact"
	"github.com/bricker/vivial-sub003/internal/server"
	"github.com/bricker/vivial-sub003/internal/warehouse"
)

// App manages the ingest service lifecycle: shared resources, the HTTP
// server, and graceful shutdown.
type App struct {
	cfg *config.Config

	// Shared resources
	wh       warehouse.Client
	ctrl     control.Store
	redactor redact.Redactor
	archiver *archive.Archiver
	shutdown *server.ShutdownManager

	httpServer *http.Server

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{
		cfg: cfg,
	}, nil
}

// Start initializes shared resources and starts the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.initSharedResources(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to initialize shared resources: %w", err)
	}

	if err := a.startHTTPServer(); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Printf("Vivial ingest started in %s environment", a.cfg.Environment)
	return nil
}

// initSharedResources initializes the warehouse client, control store,
// redactor, archiver, and shutdown manager.
func (a *App) initSharedResources(ctx context.Context) error {
	wh, err := warehouse.NewBigQueryClient(ctx, a.cfg.Warehouse.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to initialize warehouse client: %w", err)
	}
	a.wh = wh
	log.Printf("Warehouse client initialized: project=%s", a.cfg.Warehouse.ProjectID)

	ctrl, err := control.NewStore(a.cfg.Control.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize control store: %w", err)
	}
	a.ctrl = ctrl
	log.Printf("Control store initialized: %s", a.cfg.Control.Path)

	if a.cfg.Redaction.Enabled {
		a.redactor = redact.NewClassifier(a.cfg.Redaction.Endpoint, a.cfg.Redaction.Timeout)
		log.Printf("Redaction classifier initialized: %s", a.cfg.Redaction.Endpoint)
	} else {
		a.redactor = redact.Noop{}
	}

	if a.cfg.Archive.Enabled {
		var store archive.ObjectStorage
		switch a.cfg.Archive.Type {
		case "local":
			store, err = archive.NewLocalStorage(a.cfg.Archive.Path)
		case "s3":
			store, err = archive.NewS3Storage(ctx, a.cfg.Archive.S3.Bucket, archive.S3Config{
				Region:   a.cfg.Archive.S3.Region,
				Endpoint: a.cfg.Archive.S3.Endpoint,
			})
		default:
			return fmt.Errorf("unsupported archive type: %s", a.cfg.Archive.Type)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize archive storage: %w", err)
		}
		a.archiver = archive.NewArchiver(store)
		log.Printf("Archive initialized: type=%s", a.cfg.Archive.Type)
	}

	a.shutdown = server.NewShutdownManager(server.ShutdownConfig{})
	a.shutdown.RegisterCloser(server.CloserFunc(a.ctrl.Close))
	a.shutdown.RegisterCloser(server.CloserFunc(a.wh.Close))

	return nil
}

// startHTTPServer wires the ingest handlers and starts listening.
func (a *App) startHTTPServer() error {
	var decrypter record.Decrypter
	if a.cfg.Ingest.AccountKey != "" {
		dec, err := record.NewAESDecrypter(a.cfg.Ingest.AccountKey)
		if err != nil {
			return fmt.Errorf("failed to initialize account decrypter: %w", err)
		}
		decrypter = dec
	}

	opts := ingest.Options{
		Warehouse:    a.wh,
		Control:      a.ctrl,
		Redactor:     a.redactor,
		Archiver:     a.archiver,
		Decrypter:    decrypter,
		StrictSchema: a.cfg.StrictSchema(),
	}

	ingestHandler := httpapi.NewIngestHandler(opts, a.cfg.Ingest.MaxBatchEvents, a.shutdown)
	virtualEventsHandler := httpapi.NewVirtualEventsHandler(a.ctrl)

	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.TeamIDMiddleware,
		httpapi.ContentTypeMiddleware,
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/events/{kind}", middleware(ingestHandler))
	mux.Handle("/v1/virtual-events", middleware(virtualEventsHandler))
	mux.Handle("/healthz", &httpapi.HealthHandler{})

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("Ingest HTTP server listening on %s", a.cfg.HTTP.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Ingest HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the service: drain in-flight work (requests and
// acknowledged batches), then release resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	log.Printf("Initiating graceful shutdown...")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	if a.shutdown != nil {
		if err := a.shutdown.Shutdown(shutdownCtx, "app stop"); err != nil {
			log.Printf("Shutdown manager error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All goroutines finished
	case <-shutdownCtx.Done():
		log.Printf("Shutdown timeout, some goroutines may not have finished")
	}

	log.Printf("Vivial ingest stopped")
	return nil
}

// cleanup releases shared resources on a failed start. After a successful
// start the shutdown manager owns resource closing.
func (a *App) cleanup() {
	if a.ctrl != nil {
		a.ctrl.Close()
	}
	if a.wh != nil {
		a.wh.Close()
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}
