package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/commercekit/slack-relay/internal/domain"
)

type ListParams struct {
	EventName *string
	Status    *domain.DeliveryStatus
	Page      int
	PageSize  int
}

// NotificationRepository persists delivery outcomes. Records are terminal:
// they are inserted once and never updated, a resend inserts a new row.
type NotificationRepository interface {
	Create(ctx context.Context, record *domain.NotificationRecord) error
	GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error)
	List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error)
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, record *domain.NotificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	var record domain.NotificationRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormNotificationRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.NotificationRecord{})

	if params.EventName != nil {
		query = query.Where("event_name = ?", *params.EventName)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var records []domain.NotificationRecord
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
