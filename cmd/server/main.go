package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/cotizaciones/internal/config"
	"github.com/Simplici0/cotizaciones/internal/db"
	"github.com/Simplici0/cotizaciones/internal/migrations"
	"github.com/Simplici0/cotizaciones/internal/quote"
	"github.com/Simplici0/cotizaciones/internal/seed"
	"github.com/Simplici0/cotizaciones/internal/store"
)

type server struct {
	auth   *authService
	quotes *quote.Service
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seeded %d users", stats.Inserts)
	}

	local := store.NewSQLiteStore(database)
	if cfg.SyncEnabled() {
		go runSync(ctx, cfg, local)
	}

	srv := newServer(database, cfg.SessionSecret, quote.NewService(local, quote.WithDefaultTRM(cfg.DefaultTRM)))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}

func newServer(database *sql.DB, sessionSecret string, quotes *quote.Service) *server {
	return &server{auth: newAuthService(database, sessionSecret), quotes: quotes}
}

// runSync connects to the remote store and keeps it reconciled with the
// local one. The server keeps working offline if the remote is unreachable.
func runSync(ctx context.Context, cfg config.Config, local *store.SQLiteStore) {
	gdb, err := db.OpenPostgres(ctx, cfg.RemoteDSN)
	if err != nil {
		log.Printf("remote store unavailable, sync disabled: %v", err)
		return
	}
	remote := store.NewPostgresStore(gdb)
	if err := remote.AutoMigrate(ctx); err != nil {
		log.Printf("remote store migration failed, sync disabled: %v", err)
		return
	}

	syncer := store.NewSyncer(local, remote)
	if stats, err := syncer.Run(ctx); err != nil {
		log.Printf("initial sync failed: %v", err)
	} else {
		log.Printf("initial sync: pushed=%d pulled=%d", stats.Pushed, stats.Pulled)
	}
	syncer.Loop(ctx, cfg.SyncInterval)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authMiddleware)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/me", s.handleMe)

	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", s.handleQuotesList)
		r.Post("/", s.handleQuoteCreate)
		r.Get("/by-cotizacion/{cotizacionID}", s.handleQuoteByBusinessID)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleQuoteGet)
			r.Put("/", s.handleQuoteUpdate)
			r.Delete("/", s.handleQuoteDelete)
			r.Get("/items", s.handleQuoteItems)
			r.Get("/text", s.handleQuoteText)
			r.Post("/items", s.handleItemCreate)
			r.Post("/items/{itemKey}/options", s.handleOptionCreate)
			r.Patch("/rows/{rowID}", s.handleRowUpdate)
			r.Delete("/rows/{rowID}", s.handleRowDelete)
			r.Post("/rows/{rowID}/costs", s.handleCostCreate)
			r.Post("/submit", s.handleSubmit)
			r.Post("/approve", s.handleApprove)
			r.Post("/revision", s.handleRevision)
			r.Post("/deny", s.handleDeny)
			r.Get("/purchases", s.handlePurchaseAnalysis)
			r.Post("/purchases/{rowIndex}", s.handlePurchaseRecord)
		})
	})

	r.Get("/approvals/{id}", s.handleApprovalOpen)

	return r
}
