package client

import (
	"log"
	"strings"
	"time"

	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDBClient opens the datastore. A mysql DSN (user:pass@tcp(...)/db)
// selects the mysql driver; anything else is treated as a sqlite path.
func InitDBClient(databaseURL string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.Contains(databaseURL, "@tcp(") {
		dialector = mysql.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Event{},
		&model.TicketType{},
		&model.Order{},
		&model.OrderItem{},
		&model.PromotionCode{},
		&model.PromotionRedemption{},
		&model.Participant{},
		&model.TicketTemplate{},
		&model.PrintJob{},
		&model.WebhookEvent{},
	); err != nil {
		log.Fatal(err)
	}

	return db
}
