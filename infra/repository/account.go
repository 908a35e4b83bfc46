package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository binds an AccountRepository to a DB session.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Create(toAccountModel(account)).Error
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	var m BankAccount
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAccountDomain(&m), nil
}

func (r *accountRepository) GetByConnectionAndExternalID(ctx context.Context, connectionID uuid.UUID, externalID string) (*domain.BankAccount, error) {
	var m BankAccount
	err := r.db.WithContext(ctx).
		First(&m, "connection_id = ? AND external_id = ?", connectionID, externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAccountDomain(&m), nil
}

func (r *accountRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*domain.BankAccount, error) {
	var models []BankAccount
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("external_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toAccountDomains(models), nil
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	var models []BankAccount
	err := r.db.WithContext(ctx).
		Joins("JOIN bank_connections ON bank_connections.id = bank_accounts.connection_id").
		Where("bank_connections.owner_id = ?", ownerID).
		Order("bank_accounts.external_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toAccountDomains(models), nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Save(toAccountModel(account)).Error
}

func toAccountModel(a *domain.BankAccount) *BankAccount {
	return &BankAccount{
		ID:           a.ID,
		ConnectionID: a.ConnectionID,
		ExternalID:   a.ExternalID,
		Name:         a.Name,
		Type:         a.Type,
		Balance:      a.Balance,
		Currency:     a.Currency,
		IBAN:         a.IBAN,
		LastSyncAt:   a.LastSyncAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toAccountDomain(m *BankAccount) *domain.BankAccount {
	return &domain.BankAccount{
		ID:           m.ID,
		ConnectionID: m.ConnectionID,
		ExternalID:   m.ExternalID,
		Name:         m.Name,
		Type:         m.Type,
		Balance:      m.Balance,
		Currency:     m.Currency,
		IBAN:         m.IBAN,
		LastSyncAt:   m.LastSyncAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toAccountDomains(models []BankAccount) []*domain.BankAccount {
	out := make([]*domain.BankAccount, len(models))
	for i := range models {
		out[i] = toAccountDomain(&models[i])
	}
	return out
}
