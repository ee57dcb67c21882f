package infra

import (
	"fmt"
	"time"

	"nakl/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the configured store. postgres is the production driver
// (pgx underneath); sqlite serves local development and tests.
// TranslateError maps driver unique violations to gorm.ErrDuplicatedKey.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite allows one writer; a single connection serialises transactions
		// instead of failing them with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}
	return db, nil
}

// Models lists every table owned by this service, in dependency order.
func Models() []any {
	return []any{
		&model.SequenceCounter{},
		&model.Tender{},
		&model.TenderItem{},
		&model.Milestone{},
		&model.DocumentPurchase{},
		&model.Bid{},
		&model.BidItem{},
		&model.Evaluation{},
		&model.WorkOrder{},
		&model.AwardLetter{},
		&model.Assignment{},
		&model.PaymentInstallment{},
		&model.LedgerPosting{},
	}
}

// RunMigrations builds the schema with AutoMigrate. Used for sqlite
// (development and tests); postgres deployments use MigrateUp instead.
// Both paths end with the same schema patches and counter seed.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that struct tags cannot express.
// Each statement is valid on both postgres and sqlite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// at most one WINNER bid per tender
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_winner ON bids (tender_id) WHERE status = 'WINNER'`,
		// retry cron scan
		`CREATE INDEX IF NOT EXISTS idx_ledger_postings_due ON ledger_postings (next_retry_at) WHERE status = 'pending'`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	for _, s := range model.AllSeries {
		if err := db.Exec(
			`INSERT INTO sequence_counters (series, value, updated_at) VALUES (?, 0, ?) ON CONFLICT (series) DO NOTHING`,
			s, time.Now().UTC(),
		).Error; err != nil {
			return fmt.Errorf("seed sequence %s: %w", s, err)
		}
	}
	return nil
}
