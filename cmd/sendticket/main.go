// Diagnostic end-to-end ticket send: renders the pass for one participant
// token in every output format and hands the markup to the mailer. Usage:
//
//	sendticket <participant-token>
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/config"
	"github.com/leeveo/inscription-sub004/internal/repository"
	"github.com/leeveo/inscription-sub004/internal/service"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: sendticket <participant-token>")
		os.Exit(2)
	}
	token := os.Args[1]

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	db := client.InitDBClient(cfg.DatabaseURL)

	fulfillment := service.NewFulfillmentService(
		db, client.NewLogMailer(),
		repository.NewEventRepository(db),
		repository.NewOrderRepository(db),
		repository.NewParticipantRepository(db),
		repository.NewTemplateRepository(db),
		repository.NewPrintJobRepository(db),
		cfg.BaseURL,
	)

	ctx := context.Background()
	for _, format := range []string{service.FormatHTML, service.FormatPDF, service.FormatESCPOS} {
		out, contentType, err := fulfillment.RenderPass(ctx, token, format)
		if err != nil {
			log.Fatalf("render %s: %v", format, err)
		}
		fmt.Printf("%-7s %-26s %d bytes\n", format, contentType, len(out))
	}

	participant, err := fulfillment.GetTicket(ctx, token)
	if err != nil {
		log.Fatalf("load participant: %v", err)
	}

	html, _, err := fulfillment.RenderPass(ctx, token, service.FormatHTML)
	if err != nil {
		log.Fatalf("render markup: %v", err)
	}
	if err := client.NewLogMailer().Send(ctx, participant.Email, "Your ticket", html); err != nil {
		log.Fatalf("send: %v", err)
	}

	fmt.Println("ticket rendered and handed off")
}
