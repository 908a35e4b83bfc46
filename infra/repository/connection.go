// Package repository implements the storage contracts over gorm/postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository binds a ConnectionRepository to a DB session.
func NewConnectionRepository(db *gorm.DB) repository.ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	return r.db.WithContext(ctx).Create(toConnectionModel(conn)).Error
}

func (r *connectionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	var m BankConnection
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, err
	}
	return toConnectionDomain(&m), nil
}

func (r *connectionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Connection, error) {
	var m BankConnection
	err := r.db.WithContext(ctx).First(&m, "external_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, err
	}
	return toConnectionDomain(&m), nil
}

func (r *connectionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Connection, error) {
	var models []BankConnection
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toConnectionDomains(models), nil
}

func (r *connectionRepository) ListNeedingSync(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Connection, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", string(domain.ConnectionActive)).
		Where("last_sync_at IS NULL OR last_sync_at < ?", cutoff).
		Order("last_sync_at ASC NULLS FIRST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []BankConnection
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return toConnectionDomains(models), nil
}

func (r *connectionRepository) ListByStatusOlderThan(ctx context.Context, status domain.ConnectionStatus, cutoff time.Time) ([]*domain.Connection, error) {
	var models []BankConnection
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(status), cutoff).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toConnectionDomains(models), nil
}

func (r *connectionRepository) CountByStatus(ctx context.Context) (map[domain.ConnectionStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&BankConnection{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.ConnectionStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.ConnectionStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *connectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	return r.db.WithContext(ctx).Save(toConnectionModel(conn)).Error
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&BankConnection{}, "id = ?", id).Error
}

func toConnectionModel(conn *domain.Connection) *BankConnection {
	return &BankConnection{
		ID:         conn.ID,
		OwnerID:    conn.OwnerID,
		Provider:   conn.Provider,
		ExternalID: conn.ExternalID,
		Status:     string(conn.Status),
		LastSyncAt: conn.LastSyncAt,
		CreatedAt:  conn.CreatedAt,
		UpdatedAt:  conn.UpdatedAt,
	}
}

func toConnectionDomain(m *BankConnection) *domain.Connection {
	return &domain.Connection{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Provider:   m.Provider,
		ExternalID: m.ExternalID,
		Status:     domain.ConnectionStatus(m.Status),
		LastSyncAt: m.LastSyncAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toConnectionDomains(models []BankConnection) []*domain.Connection {
	out := make([]*domain.Connection, len(models))
	for i := range models {
		out[i] = toConnectionDomain(&models[i])
	}
	return out
}
