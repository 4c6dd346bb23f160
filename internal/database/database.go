package database

import (
	"fmt"
	"os"
	"time"

	"github.com/jcastellanos/aguadora-api/internal/models"
	pkgLogger "github.com/jcastellanos/aguadora-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*gorm.DB, error) {
	logLevel := logger.Silent
	if os.Getenv("ENVIRONMENT") != "production" {
		logLevel = logger.Info
	}

	gormLogger := pkgLogger.NewGormLogger(
		logLevel,
		200*time.Millisecond,
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		// Single-statement writes skip the implicit transaction;
		// multi-write sequences open explicit ones in the services.
		SkipDefaultTransaction: true,
		PrepareStmt:            true, // Cache prepared statements
		// Receipt allocation relies on errors.Is(err, gorm.ErrDuplicatedKey)
		// to retry on unique-index conflicts.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Owner{},
		&models.Connection{},
		&models.MonthlyPayment{},
		&models.CoveredMonth{},
		&models.Plan{},
		&models.PlanPayment{},
		&models.OtherPayment{},
		&models.LegacyPayment{},
		&models.Setting{},
		&models.Notification{},
		&models.AuditLog{},
	)
}
