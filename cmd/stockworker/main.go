package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukahub/go-pos-sales/internal/config"
	kafkax "github.com/dukahub/go-pos-sales/internal/kafka"
	"github.com/dukahub/go-pos-sales/internal/postgres"
	"github.com/dukahub/go-pos-sales/internal/redisx"
	"github.com/dukahub/go-pos-sales/internal/sales"
	"github.com/dukahub/go-pos-sales/internal/stock"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: applied & rejected
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleStockApplied, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleStockRejected, 1024)
	pRJ.Start(ctx)

	svc := &stock.Service{
		Repo:             &sales.StockRepo{DB: db},
		Sales:            &sales.Repo{DB: db},
		Cache:            &redisx.Cache{Client: rdb},
		ProducerApplied:  pOK,
		ProducerRejected: pRJ,
		ServiceName:      cfg.ServiceName + "-stock",
	}

	group := getenv("STOCK_GROUP", "stock-worker")
	workers := mustAtoi(os.Getenv("STOCK_WORKERS"), "8")

	confirmed := kafkax.NewConsumer(cfg.KafkaBrokers, group, sales.TopicSaleConfirmed, workers)
	go func() {
		log.Printf("stock consumer started: group=%s topic=%s workers=%d", group, sales.TopicSaleConfirmed, workers)
		if err := confirmed.Start(ctx, svc.HandleSaleConfirmed); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	voided := kafkax.NewConsumer(cfg.KafkaBrokers, group+"-void", sales.TopicSaleVoided, workers)
	go func() {
		log.Printf("void consumer started: group=%s topic=%s workers=%d", group+"-void", sales.TopicSaleVoided, workers)
		if err := voided.Start(ctx, svc.HandleSaleVoided); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pOK.Close()
	pRJ.Close()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}
