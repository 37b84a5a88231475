package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukahub/go-pos-sales/internal/checkout"
	"github.com/dukahub/go-pos-sales/internal/config"
	"github.com/dukahub/go-pos-sales/internal/httpx"
	kafkax "github.com/dukahub/go-pos-sales/internal/kafka"
	"github.com/dukahub/go-pos-sales/internal/postgres"
	"github.com/dukahub/go-pos-sales/internal/redisx"
	"github.com/dukahub/go-pos-sales/internal/sales"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnBoot {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	pConfirm := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleConfirmed, 1024)
	pConfirm.Start(ctx)
	pVoid := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleVoided, 1024)
	pVoid.Start(ctx)

	// Repo, calculator, handler
	repo := &sales.Repo{DB: db}
	calc := &checkout.Calculator{
		Lookup:                 &sales.CachedLookup{Repo: repo, Redis: rdb},
		PreserveDiscountEdits:  cfg.StickyDiscounts,
		PreserveAmountDueEdits: cfg.StickyAmountDue,
	}
	router := httpx.NewRouter()
	sh := &httpx.SalesHandler{
		Repo:            repo,
		Calc:            calc,
		ConfirmProducer: pConfirm,
		VoidProducer:    pVoid,
		Redis:           rdb,
		Service:         cfg.ServiceName,
	}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pConfirm.Close() // stop intake, flush what is queued
	pVoid.Close()
	cancel()
	pConfirm.WaitClosed()
	pVoid.WaitClosed()
}
