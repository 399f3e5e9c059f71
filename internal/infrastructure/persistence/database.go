package persistence

import (
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the gorm handle for the sqlite or postgres invoice store.
type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase opens the database selected by storage.Driver with a silent GORM logger
func NewDatabase(storage *config.StorageConfig, dbCfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithCustomLogger(storage, dbCfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithCustomLogger opens the database selected by storage.Driver.
// Supported drivers are "sqlite" and "postgres".
func NewDatabaseWithCustomLogger(storage *config.StorageConfig, dbCfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	var dialector gorm.Dialector
	switch storage.Driver {
	case config.StorageDriverSQLite:
		dialector = sqlite.Open(storage.SQLitePath)
	case config.StorageDriverPostgres:
		dialector = postgres.Open(dbCfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", storage.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if storage.Driver == config.StorageDriverSQLite {
		// Each sqlite connection to :memory: sees its own database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(dbCfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, Driver: storage.Driver}, nil
}

// AutoMigrate creates or updates the invoicing tables from the GORM models.
// Postgres deployments use the SQL migrations instead; this serves sqlite and tests.
func (d *Database) AutoMigrate() error {
	return AutoMigrate(d.DB)
}

// AutoMigrate creates or updates the invoicing tables on db
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.InvoiceModel{}, &models.PaymentModel{}, &models.SequenceModel{}); err != nil {
		return fmt.Errorf("failed to migrate invoicing tables: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
