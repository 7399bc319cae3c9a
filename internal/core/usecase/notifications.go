package usecase

import (
	"context"
	"errors"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

const defaultNotificationLimit = 50

// NotificationsUseCase is the read model over notifications the worker has
// persisted.
type NotificationsUseCase struct {
	store ports.NotificationStore
}

func NewNotificationsUseCase(store ports.NotificationStore) *NotificationsUseCase {
	return &NotificationsUseCase{store: store}
}

func (uc *NotificationsUseCase) ListNotifications(ctx context.Context, actor domain.Actor, limit int) ([]domain.Notification, error) {
	if actor.UserID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list notifications", errors.New("missing identity"))
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	return uc.store.ListByUser(ctx, actor.UserID, limit)
}
