package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "deedflow/internal/adapters/http"
	"deedflow/internal/adapters/memory"
	pg "deedflow/internal/adapters/postgres"
	"deedflow/internal/config"
	"deedflow/internal/ports"
	"deedflow/internal/services/access"
	dealsvc "deedflow/internal/services/deals"
	"deedflow/internal/services/extraction"
	"deedflow/internal/workers/eventrunner"
)

func main() {
	cfg, err := config.Load()
	switch {
	case errors.Is(err, config.ErrNoDatabase):
		log.Printf("warning: %v", err)
	case err != nil:
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: postgres when configured, otherwise in-process.
	var (
		dealRepo ports.DealRepository
		jobRepo  ports.JobRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL, pg.PoolOptions{
			MaxConns:          cfg.DBMaxConns,
			MinConns:          cfg.DBMinConns,
			MaxConnLifetime:   cfg.DBMaxConnLifetime,
			HealthCheckPeriod: cfg.DBHealthCheckPeriod,
			ConnectTimeout:    cfg.DBConnectTimeout,
		})
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("db migrate error: %v", err)
		}
		dealRepo, jobRepo = pg.NewDeals(db), pg.NewJobs(db)
	} else {
		dealRepo, jobRepo = memory.NewDealStore(), memory.NewJobQueue()
	}

	extractor := extraction.New(cfg.ExtractionURL, cfg.ExtractionTimeout)
	deals := dealsvc.New(dealRepo, jobRepo, extractor, dealsvc.WithDocGating(cfg.EnforceDocGating))

	if cfg.DemoMode {
		d, err := deals.SeedDemo(ctx, cfg.DemoOrgID)
		if err != nil {
			log.Fatalf("demo seed error: %v", err)
		}
		log.Printf("demo deal %q ready: %s (org %s)", d.Name, d.ID, d.OrgID)
	}

	srv := httpadapter.New(deals, jobRepo, access.NewRolePolicy())
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional background event workers
	var workers sync.WaitGroup
	if cfg.EventWorkers > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			eventrunner.Run(ctx, jobRepo, eventrunner.DealProcessor{Deals: deals}, cfg.EventWorkers, cfg.EventPollInterval)
		}()
		log.Printf("event workers started: %d", cfg.EventWorkers)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	log.Printf("listening on %s (%s)", cfg.ListenAddr, cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		cancel()
		workers.Wait()
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
