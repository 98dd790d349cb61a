package service

import (
	"context"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/repository"
	"github.com/commercekit/slack-relay/internal/slack"
)

type fakeNotificationRepo struct {
	createFn  func(ctx context.Context, record *domain.NotificationRecord) error
	getByIDFn func(ctx context.Context, id string) (*domain.NotificationRecord, error)
	listFn    func(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, record *domain.NotificationRecord) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, record)
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, params)
}

type fakeEventRepo struct {
	createFn  func(ctx context.Context, event *domain.SlackNotificationEvent) error
	getByIDFn func(ctx context.Context, id string) (*domain.SlackNotificationEvent, error)
	listFn    func(ctx context.Context) ([]domain.SlackNotificationEvent, error)
	deleteFn  func(ctx context.Context, id string) (*domain.SlackNotificationEvent, error)
}

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.SlackNotificationEvent) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, event)
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.SlackNotificationEvent, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeEventRepo) List(ctx context.Context) ([]domain.SlackNotificationEvent, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx)
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) (*domain.SlackNotificationEvent, error) {
	if f.deleteFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.deleteFn(ctx, id)
}

type fakePoster struct {
	postFn func(ctx context.Context, msg slack.Message) (*slack.PostResponse, error)
}

func (f *fakePoster) PostMessage(ctx context.Context, msg slack.Message) (*slack.PostResponse, error) {
	if f.postFn == nil {
		return &slack.PostResponse{OK: true, Channel: msg.Channel, TS: "1.0"}, nil
	}
	return f.postFn(ctx, msg)
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn == nil {
		return nil
	}
	return f.waitFn(ctx, channel)
}
