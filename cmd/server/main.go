package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ntalhaozcandev/basic-ecom-backend/config"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/api"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/inventory"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/redisclient"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/service"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/worker"
)

// demoProducts seeds the in-memory store when no database is configured
var demoProducts = []models.Product{
	{ID: "prod-keyboard", Title: "Mechanical Keyboard", Price: 8999, Stock: 50, IsActive: true},
	{ID: "prod-mouse", Title: "Wireless Mouse", Price: 3499, Stock: 120, IsActive: true},
	{ID: "prod-monitor", Title: "27\" 4K Monitor", Price: 42999, Stock: 25, IsActive: true},
	{ID: "prod-headset", Title: "Noise-Cancelling Headset", Price: 19999, Stock: 40, IsActive: true},
	{ID: "prod-dock", Title: "USB-C Docking Station", Price: 15999, Stock: 0, IsActive: true},
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ecom backend")

	tp, err := util.InitTracer("ecom-backend", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	var db store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()
		db = pg
		log.Println("Database connected")
	} else {
		mem := store.NewMemory()
		mem.SeedProducts(demoProducts)
		db = mem
		log.Println("Using in-memory store")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		log.Println("Kafka producer initialized")
	}
	eventPublisher := broker.NewEventPublisher(producer)

	ledger := inventory.NewLedger(db, redisClient)
	if redisClient != nil {
		if err := ledger.SyncToRedis(context.Background()); err != nil {
			log.Printf("Failed to sync inventory to Redis: %v", err)
		}
	}

	clock := util.SystemClock{}
	rng := util.NewRand(cfg.Sim.Seed)
	var sleeper util.Sleeper = util.NopSleeper{}
	if cfg.Sim.LatencyDelay {
		sleeper = util.RealSleeper{Rand: rng}
	}

	cartService := service.NewCartService(db, db)
	orderService := service.NewOrderService(db, db, db, ledger, eventPublisher, clock)
	paymentService := service.NewPaymentService(db, db, eventPublisher, rng, clock, sleeper)
	shippingService := service.NewShippingService(db, db, eventPublisher, rng, clock, sleeper)

	verifier := auth.NewStaticVerifier(auth.ParseTokenSpec(cfg.Auth.TokenSpec))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	expiryWorker := worker.NewExpiryWorker(
		orderService,
		clock,
		time.Duration(cfg.Business.OrderTimeoutSeconds)*time.Second,
		time.Duration(cfg.Business.ExpirySweepSeconds)*time.Second,
	)
	go expiryWorker.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(cartService, orderService, paymentService, shippingService, verifier)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	expiryWorker.Stop()

	log.Println("Server exited")
}
