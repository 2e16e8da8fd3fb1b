package repository

import (
	"context"

	"pingline/internal/domain/entity"
)

type PushSubscriptionRepository interface {
	Save(ctx context.Context, sub *entity.PushSubscription) error
	ListByUserID(ctx context.Context, userID string) ([]*entity.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) error
}
