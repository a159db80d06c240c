package database

import (
	"os"
	"time"

	"github.com/saurabhwebdev/tailtally-sub003/internal/config"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() {
	log := config.GetLogger()

	// 1. Get Credentials from .env file
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not found in .env file. Please configure your database.")
	}

	var err error

	// 2. Connect with GORM (wait for the DB to be ready)
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warnf("Failed to connect to database. Retrying in 2 seconds... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatal("Failed to connect to database after 5 attempts: ", err)
	}

	log.Info("✅ Successfully connected to MySQL!")

	// 3. Auto-Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Owner{},
		&models.Pet{},
		&models.Appointment{},
		&models.InventoryItem{},
		&models.StockMovement{},
		&models.Sale{},
		&models.SaleLineItem{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
	)
	if err != nil {
		log.Fatal("Failed to migrate schema: ", err)
	}

	log.Info("✅ Database Schema Synced!")
}
