package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/handler"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/remote"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/adapter/storage"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/config"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/service"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/observability"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the durable store
	var (
		store port.Store
		db    *sql.DB
	)
	switch cfg.StoreMode {
	case config.StoreModeMySQL:
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")
		store = storage.NewMySQLAdapter(db)
	case config.StoreModeRemote:
		store = remote.NewClient(cfg.StoreURL)
		log.Printf("using remote store at %s", cfg.StoreURL)
	case config.StoreModeMemory:
		store = storage.NewMemoryAdapter()
		log.Println("using in-memory store")
	}

	// Initialize the Redis quantity guard when configured
	var (
		cache port.CacheRepository
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")
		cache = storage.NewRedisAdapter(rdb)
	} else {
		log.Println("redis guard disabled")
	}

	// Initialize metrics
	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	// Initialize services
	ledgerService := service.NewLedgerService(store, store, store, cache, collector, cfg.QueueSize)
	shipmentService := service.NewShipmentService(store, store, store, ledgerService, cache, collector)
	searchService := service.NewSearchService(store, store)
	siteService := service.NewSiteService(store, store, store)
	itemService := service.NewItemService(store, store)
	userService := service.NewUserService(store)

	// Start guard resync workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			resyncLoop(id, ledgerService)
		}(i)
	}
	log.Printf("started %d resync workers", cfg.WorkerCount)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(ledgerService, shipmentService, searchService, siteService, itemService, userService)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("/metrics", collector.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Close the resync queue and wait for workers
	ledgerService.Close()
	wg.Wait()
	log.Println("workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Println("connections closed")
}

func resyncLoop(id int, ledger *service.LedgerService) {
	for key := range ledger.ResyncQueue() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := ledger.ResyncGuard(ctx, key); err != nil {
			log.Printf("worker %d: failed to resync guard site %d item %d: %v", id, key.SiteID, key.ItemID, err)
		} else {
			log.Printf("worker %d: resynced guard site %d item %d", id, key.SiteID, key.ItemID)
		}

		cancel()
	}
}
