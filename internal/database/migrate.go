package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

func Migrate() error {
	log.Info("Running database migrations...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.InstallmentPackage{},
		&models.Transaction{},
		&models.InstallmentEntry{},
		&models.Payment{},
		&models.Dispute{},
		&models.ServiceRequest{},
		&models.ServiceConfirmation{},
		&models.ServiceRequestDocument{},
		&models.Review{},
		&models.LandJourney{},
		&models.Notification{},
	)

	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Partial unique indexes back the single-active-row invariants that the
	// services otherwise only check with a read before the insert: at most
	// one pending payment per transaction or service request, and at most
	// one unfunded transaction per listing, buyer and payment type.
	partialIndexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_pending_transaction
			ON payments (transaction_id)
			WHERE status IN ('initiated', 'processing') AND transaction_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_pending_service_request
			ON payments (service_request_id)
			WHERE status IN ('initiated', 'processing') AND service_request_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_unfunded_purchase
			ON transactions (listing_id, buyer_id, payment_type)
			WHERE status = 'created'`,
	}
	for _, stmt := range partialIndexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create partial unique index: %w", err)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}
