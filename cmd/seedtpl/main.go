// Diagnostic seeding script: creates a demo event with two ticket types, a
// promotion code and a default ticket template against the configured
// database. Not part of the serving path.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/config"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/leeveo/inscription-sub004/internal/render"
	"github.com/leeveo/inscription-sub004/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	db := client.InitDBClient(cfg.DatabaseURL)
	ctx := context.Background()

	eventRepo := repository.NewEventRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	now := time.Now()
	event := &model.Event{
		ID:       "demo-event",
		Name:     "Salon Horizon 2026",
		Slug:     "salon-horizon-2026",
		Venue:    "Parc des Expositions, Lyon",
		StartsAt: now.AddDate(0, 1, 0),
		EndsAt:   now.AddDate(0, 1, 2),
	}
	if err := eventRepo.Create(ctx, event); err != nil {
		log.Fatalf("seed event: %v", err)
	}

	quota := int64(200)
	maxUses := int64(50)
	seedRows := []interface{}{
		&model.TicketType{
			ID: "demo-standard", EventID: event.ID, Name: "Standard",
			Price: 2500, Currency: "EUR", Taxable: true, TaxRate: 2000,
			QuotaTotal: &quota, MinPerOrder: 1, MaxPerOrder: 10,
			Visible: true, Sellable: true,
		},
		&model.TicketType{
			ID: "demo-vip", EventID: event.ID, Name: "VIP",
			Price: 9900, Currency: "EUR", Taxable: true, TaxRate: 2000,
			QuotaTotal: nil, MinPerOrder: 1, MaxPerOrder: 4,
			Visible: true, Sellable: true,
		},
		&model.PromotionCode{
			ID: "demo-early", EventID: event.ID, Code: "EARLY10",
			Kind: model.PromoPercent, Value: 10, MaxUses: &maxUses,
		},
	}
	for _, row := range seedRows {
		if err := db.WithContext(ctx).Create(row).Error; err != nil {
			log.Fatalf("seed row: %v", err)
		}
	}

	schemaJSON, err := json.Marshal(render.BuiltinSchema())
	if err != nil {
		log.Fatalf("marshal schema: %v", err)
	}

	tpl := &model.TicketTemplate{
		ID:       "demo-template",
		EventID:  event.ID,
		Name:     "Billet standard",
		Kind:     model.TemplateTicket,
		Schema:   string(schemaJSON),
		Styles:   `{"font_family":"Helvetica","text_color":"#1a1a2e"}`,
		Settings: `{"dpi":300,"qr_ec_level":"M"}`,
		Version:  1,
	}
	if err := templateRepo.Create(ctx, tpl); err != nil {
		log.Fatalf("seed template: %v", err)
	}
	if err := templateRepo.SetDefault(ctx, tpl.ID); err != nil {
		log.Fatalf("set default template: %v", err)
	}

	fmt.Println("seeded demo event, ticket types, promo code and template")
	os.Exit(0)
}
