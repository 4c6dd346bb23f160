package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// receiptWidth is the zero-padded width of printed receipt numbers.
const receiptWidth = 6

// receiptRetries bounds the allocate-then-insert retry loop. Two
// concurrent recordings can read the same high-water mark; the unique
// index on receipt_number turns the loser's insert into a duplicate-key
// error and the caller re-allocates.
const receiptRetries = 3

// ReceiptService allocates receipt numbers from the numeric sequence
// shared by monthly payments, plan payments, other payments and the
// legacy payments table.
type ReceiptService struct {
	repo repository.ReceiptRepository
}

func NewReceiptService(repo repository.ReceiptRepository) *ReceiptService {
	return &ReceiptService{repo: repo}
}

// Next returns the next receipt number, zero-padded to six digits.
// The caller must persist the record carrying this number within the
// same transaction; nothing is reserved by this read alone.
func (s *ReceiptService) Next(ctx context.Context) (string, error) {
	max, err := s.repo.MaxReceiptNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read receipt high-water mark: %w", err)
	}
	return fmt.Sprintf("%0*d", receiptWidth, max+1), nil
}

// WithRetry runs insert with a freshly allocated receipt number,
// retrying on duplicate-key conflicts. insert receives the candidate
// number and must attempt the write that consumes it.
func (s *ReceiptService) WithRetry(ctx context.Context, insert func(receipt string) error) (string, error) {
	for attempt := 0; attempt < receiptRetries; attempt++ {
		receipt, err := s.Next(ctx)
		if err != nil {
			return "", err
		}

		err = insert(receipt)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
	}
	return "", ErrConflict
}
