package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository binds a TransactionRepository to a DB session.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.BankTransaction) error {
	m := BankTransaction{
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		ExternalID:      tx.ExternalID,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate,
		ValueDate:       tx.ValueDate,
		Category:        tx.Category,
		CreatedAt:       tx.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *transactionRepository) ExistsByAccountAndExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&BankTransaction{}).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.BankTransaction, error) {
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("transaction_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []BankTransaction
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.BankTransaction, len(models))
	for i, m := range models {
		out[i] = &domain.BankTransaction{
			ID:              m.ID,
			AccountID:       m.AccountID,
			ExternalID:      m.ExternalID,
			Amount:          m.Amount,
			Currency:        m.Currency,
			Description:     m.Description,
			TransactionDate: m.TransactionDate,
			ValueDate:       m.ValueDate,
			Category:        m.Category,
			CreatedAt:       m.CreatedAt,
		}
	}
	return out, nil
}
