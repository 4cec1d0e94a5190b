package repository

import (
	"testing"

	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
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
	))

	return db
}
