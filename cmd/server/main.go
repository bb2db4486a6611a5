package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/access"
	"github.com/surtidora/api/internal/audit"
	"github.com/surtidora/api/internal/cart"
	"github.com/surtidora/api/internal/catalog"
	"github.com/surtidora/api/internal/config"
	"github.com/surtidora/api/internal/database"
	"github.com/surtidora/api/internal/handler"
	"github.com/surtidora/api/internal/lifecycle"
	"github.com/surtidora/api/internal/pricing"
	"github.com/surtidora/api/internal/router"
	"github.com/surtidora/api/internal/scheduler"
	"github.com/surtidora/api/internal/service"
	"github.com/surtidora/api/internal/storage"
	"github.com/surtidora/api/internal/ws"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	policy, err := access.LoadPolicy(cfg.AccessPolicyFile)
	if err != nil {
		log.Fatalf("failed to load access policy: %v", err)
	}
	cartPolicy, err := loadCartPolicy(cfg)
	if err != nil {
		log.Fatalf("invalid pricing configuration: %v", err)
	}

	// Initialize PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("connected to postgres")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Lifecycle services, one per record kind, rebuilt from the database
	queries := database.New(pool)
	newStore := func(db database.DBTX) lifecycle.RecordStore { return database.New(db) }

	services := make(map[string]*lifecycle.Service, len(lifecycle.Kinds))
	records := make(map[string]handler.RecordService, len(lifecycle.Kinds))
	for _, kind := range lifecycle.Kinds {
		svc := lifecycle.NewService(kind, pool, newStore, audit.NewLog(), hub)
		if err := svc.Load(ctx, queries); err != nil {
			log.Fatalf("failed to load %s: %v", kind.Name, err)
		}
		services[kind.Name] = svc
		records[kind.Name] = svc
		log.Printf("loaded %d %s", len(svc.List(false)), kind.Name)
	}

	sweep := scheduler.NewOverdueSweep(services[lifecycle.Deliveries.Name], hub)
	cron, err := scheduler.Start(cfg.OverdueSweep, sweep)
	if err != nil {
		log.Fatalf("failed to start overdue sweep: %v", err)
	}

	r := router.New(router.Deps{
		Config:     cfg,
		Policy:     policy,
		Products:   catalog.NewRepository(queries),
		Carts:      storage.NewRedisCarts(rdb, cfg.CartTTL),
		CartPolicy: cartPolicy,
		Checkout:   service.NewCheckoutService(services[lifecycle.Orders.Name]),
		Records:    records,
		Hub:        hub,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	<-cron.Stop().Done()
	log.Println("overdue sweep stopped")

	cancel()
	log.Println("server exited")
}

func loadCartPolicy(cfg *config.Config) (cart.Policy, error) {
	tiers, err := pricing.ParseTiers(cfg.DiscountTiers)
	if err != nil {
		return cart.Policy{}, err
	}
	codes, err := cart.ParseCodes(cfg.DiscountCodes)
	if err != nil {
		return cart.Policy{}, err
	}
	minimum, err := decimal.NewFromString(cfg.MinimumOrder)
	if err != nil {
		return cart.Policy{}, err
	}
	return cart.Policy{Tiers: tiers, Minimum: minimum, Codes: codes}, nil
}
