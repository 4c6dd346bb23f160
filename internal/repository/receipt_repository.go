package repository

import (
	"context"

	"gorm.io/gorm"
)

// ReceiptRepository reads the highest receipt number consumed so far.
// Four independent record kinds share one numeric sequence but each
// persists its own numbers locally; the maximum across all four is the
// high-water mark. This max-scan mirrors the association's historical
// numbering scheme; strict uniqueness under concurrency comes from the
// per-table unique indexes plus the retry loop in the receipt service,
// not from this read.
type ReceiptRepository interface {
	MaxReceiptNumber(ctx context.Context) (int64, error)
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) MaxReceiptNumber(ctx context.Context) (int64, error) {
	max := int64(0)

	// monthly_payments, plan_payments and the legacy payments table
	// store plain zero-padded numbers.
	plain := []string{"monthly_payments", "plan_payments", "payments"}
	for _, table := range plain {
		var n int64
		err := r.db.WithContext(ctx).
			Raw("SELECT COALESCE(MAX(CAST(receipt_number AS BIGINT)), 0) FROM " + table).
			Scan(&n).Error
		if err != nil {
			return 0, err
		}
		if n > max {
			max = n
		}
	}

	// other_payments carries the OP- prefix, and soft-deleted rows have
	// still consumed their number, so deleted_at is ignored here.
	var n int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(CAST(REPLACE(receipt_number, 'OP-', '') AS BIGINT)), 0) FROM other_payments").
		Scan(&n).Error
	if err != nil {
		return 0, err
	}
	if n > max {
		max = n
	}

	return max, nil
}
