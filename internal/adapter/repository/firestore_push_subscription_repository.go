package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
)

type firestorePushSubscriptionRepository struct {
	client *firestore.Client
}

func NewFirestorePushSubscriptionRepository(client *firestore.Client) repository.PushSubscriptionRepository {
	return &firestorePushSubscriptionRepository{
		client: client,
	}
}

// Save upserts under an ID derived from the user and endpoint, so a browser
// re-registering the same endpoint overwrites its old record instead of
// piling up duplicates.
func (r *firestorePushSubscriptionRepository) Save(ctx context.Context, sub *entity.PushSubscription) error {
	sum := sha256.Sum256([]byte(sub.UserID + "|" + sub.Endpoint))
	sub.ID = hex.EncodeToString(sum[:16])
	sub.CreatedAt = time.Now()

	_, err := r.client.Collection("push_subscriptions").Doc(sub.ID).Set(ctx, sub)
	if err != nil {
		return errors.Internal("Failed to save push subscription", err)
	}
	return nil
}

func (r *firestorePushSubscriptionRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.PushSubscription, error) {
	query := r.client.Collection("push_subscriptions").Where("userId", "==", userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list push subscriptions", err)
	}

	var subs []*entity.PushSubscription
	for _, doc := range docs {
		var sub entity.PushSubscription
		if err := doc.DataTo(&sub); err != nil {
			continue
		}
		sub.ID = doc.Ref.ID
		subs = append(subs, &sub)
	}

	return subs, nil
}

func (r *firestorePushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID, endpoint string) error {
	query := r.client.Collection("push_subscriptions").
		Where("userId", "==", userID).
		Where("endpoint", "==", endpoint)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return errors.Internal("Failed to query push subscriptions", err)
	}

	bw := r.client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := bw.Delete(doc.Ref); err != nil {
			bw.End()
			return errors.Internal("Failed to delete push subscription", err)
		}
	}
	bw.End()

	return nil
}
