package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// Mock ReceiptRepository
type mockReceiptRepository struct {
	mockMax func(ctx context.Context) (int64, error)
}

func (m *mockReceiptRepository) MaxReceiptNumber(ctx context.Context) (int64, error) {
	if m.mockMax != nil {
		return m.mockMax(ctx)
	}
	return 0, nil
}

func TestReceiptService_Next(t *testing.T) {
	t.Run("Continues From High-Water Mark", func(t *testing.T) {
		// Max across monthly, plan, other (stripped OP-) and legacy tables
		repo := &mockReceiptRepository{
			mockMax: func(ctx context.Context) (int64, error) { return 50, nil },
		}

		receipt, err := NewReceiptService(repo).Next(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "000051", receipt)
	})

	t.Run("Empty Tables Start At One", func(t *testing.T) {
		receipt, err := NewReceiptService(&mockReceiptRepository{}).Next(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "000001", receipt)
	})

	t.Run("Grows Past Six Digits", func(t *testing.T) {
		repo := &mockReceiptRepository{
			mockMax: func(ctx context.Context) (int64, error) { return 999999, nil },
		}

		receipt, err := NewReceiptService(repo).Next(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "1000000", receipt)
	})

	t.Run("Repository Error Propagates", func(t *testing.T) {
		repo := &mockReceiptRepository{
			mockMax: func(ctx context.Context) (int64, error) { return 0, errors.New("boom") },
		}

		_, err := NewReceiptService(repo).Next(context.Background())
		assert.Error(t, err)
	})
}

func TestReceiptService_WithRetry(t *testing.T) {
	t.Run("First Attempt Succeeds", func(t *testing.T) {
		repo := &mockReceiptRepository{
			mockMax: func(ctx context.Context) (int64, error) { return 41, nil },
		}

		var inserted string
		receipt, err := NewReceiptService(repo).WithRetry(context.Background(), func(r string) error {
			inserted = r
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "000042", receipt)
		assert.Equal(t, "000042", inserted)
	})

	t.Run("Reallocates After Duplicate Key", func(t *testing.T) {
		// A concurrent writer consumed 000042 between our read and insert;
		// the repository then reports the new high-water mark.
		max := int64(41)
		repo := &mockReceiptRepository{
			mockMax: func(ctx context.Context) (int64, error) { return max, nil },
		}

		attempts := 0
		receipt, err := NewReceiptService(repo).WithRetry(context.Background(), func(r string) error {
			attempts++
			if attempts == 1 {
				max = 42
				return gorm.ErrDuplicatedKey
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, "000043", receipt)
	})

	t.Run("Gives Up After Exhausting Retries", func(t *testing.T) {
		repo := &mockReceiptRepository{}

		attempts := 0
		_, err := NewReceiptService(repo).WithRetry(context.Background(), func(r string) error {
			attempts++
			return gorm.ErrDuplicatedKey
		})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, receiptRetries, attempts)
	})

	t.Run("Non-Duplicate Error Stops Immediately", func(t *testing.T) {
		repo := &mockReceiptRepository{}
		dbErr := errors.New("connection lost")

		attempts := 0
		_, err := NewReceiptService(repo).WithRetry(context.Background(), func(r string) error {
			attempts++
			return dbErr
		})
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, 1, attempts)
	})
}
