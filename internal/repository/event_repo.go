package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/commercekit/slack-relay/internal/domain"
)

// SlackEventRepository persists managed event subscriptions. A stored row
// means the relay keeps a dispatcher attached for that event name across
// restarts.
type SlackEventRepository interface {
	Create(ctx context.Context, event *domain.SlackNotificationEvent) error
	GetByID(ctx context.Context, id string) (*domain.SlackNotificationEvent, error)
	List(ctx context.Context) ([]domain.SlackNotificationEvent, error)
	Delete(ctx context.Context, id string) (*domain.SlackNotificationEvent, error)
}

type GormSlackEventRepo struct {
	db *gorm.DB
}

func NewGormSlackEventRepo(db *gorm.DB) *GormSlackEventRepo {
	return &GormSlackEventRepo{db: db}
}

// Create inserts a subscription row. The unique index on event_name turns a
// duplicate registration into domain.ErrConflict.
func (r *GormSlackEventRepo) Create(ctx context.Context, event *domain.SlackNotificationEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *GormSlackEventRepo) GetByID(ctx context.Context, id string) (*domain.SlackNotificationEvent, error) {
	var event domain.SlackNotificationEvent
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *GormSlackEventRepo) List(ctx context.Context) ([]domain.SlackNotificationEvent, error) {
	var events []domain.SlackNotificationEvent
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Delete removes a subscription row and returns what was removed, so callers
// can detach the dispatcher and echo the record back.
func (r *GormSlackEventRepo) Delete(ctx context.Context, id string) (*domain.SlackNotificationEvent, error) {
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).Delete(&domain.SlackNotificationEvent{}, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return event, nil
}
