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

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/config"
	"github.com/leeveo/inscription-sub004/internal/pricing"
	"github.com/leeveo/inscription-sub004/internal/repository"
	"github.com/leeveo/inscription-sub004/internal/server"
	"github.com/leeveo/inscription-sub004/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitDBClient(cfg.DatabaseURL)
	paylineClient := client.NewPaylineClient(&cfg.Payline)
	mailer := client.NewLogMailer()

	eventRepo := repository.NewEventRepository(db)
	ticketTypeRepo := repository.NewTicketTypeRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	promoRepo := repository.NewPromotionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	printJobRepo := repository.NewPrintJobRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	fulfillmentService := service.NewFulfillmentService(
		db, mailer,
		eventRepo,
		orderRepo,
		participantRepo,
		templateRepo,
		printJobRepo,
		cfg.BaseURL,
	)
	orderService := service.NewOrderService(
		db, paylineClient, fulfillmentService,
		eventRepo,
		ticketTypeRepo,
		orderRepo,
		promoRepo,
		webhookEventRepo,
		pricing.FeeTier{FixedCents: cfg.Fees.FixedCents, Percent: cfg.Fees.Percent},
		time.Duration(cfg.Orders.TTLMinutes)*time.Minute,
	)
	templateService := service.NewTemplateService(templateRepo, eventRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(orderService, fulfillmentService, templateService, cfg.AdminAPIKey)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go orderService.RunExpirySweeper(sweepCtx, time.Duration(cfg.Orders.SweepSeconds)*time.Second)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")
	sweepCancel()

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
