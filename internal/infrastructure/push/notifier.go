package push

import (
	"context"
	"encoding/json"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/logger"
)

// Notifier delivers Web Push notifications to a user's registered browser
// endpoints. With no VAPID keys configured it is a no-op: subscriptions are
// still stored, sending is skipped.
type Notifier struct {
	subRepo repository.PushSubscriptionRepository
	options *webpush.Options

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewNotifier(subRepo repository.PushSubscriptionRepository, publicKey, privateKey, subject string) *Notifier {
	n := &Notifier{
		subRepo: subRepo,
		seen:    make(map[string]struct{}),
	}
	if publicKey != "" && privateKey != "" {
		n.options = &webpush.Options{
			Subscriber:      subject,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             30,
		}
	} else {
		logger.Warn("VAPID keys not configured, push notifications disabled")
	}
	return n
}

type payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Icon  string            `json:"icon,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// NotifyMessage pushes a new-message notification to the user. Each message
// notifies a given recipient at most once, regardless of how many delivery
// paths race to it.
func (n *Notifier) NotifyMessage(ctx context.Context, userID, messageID, title, body, icon string, data map[string]string) {
	if n.options == nil {
		return
	}

	dedupKey := userID + ":" + messageID
	n.mu.Lock()
	if _, dup := n.seen[dedupKey]; dup {
		n.mu.Unlock()
		return
	}
	if len(n.seen) > 4096 {
		n.seen = make(map[string]struct{})
	}
	n.seen[dedupKey] = struct{}{}
	n.mu.Unlock()

	subs, err := n.subRepo.ListByUserID(ctx, userID)
	if err != nil {
		logger.Error("Push: failed to list subscriptions for %s: %v", userID, err)
		return
	}

	payloadBytes, err := json.Marshal(payload{Title: title, Body: body, Icon: icon, Data: data})
	if err != nil {
		return
	}

	for _, sub := range subs {
		n.send(ctx, sub, payloadBytes)
	}
}

func (n *Notifier) send(ctx context.Context, sub *entity.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, wpSub, n.options)
	if err != nil {
		logger.Error("Push: send to %s failed: %v", sub.UserID, err)
		return
	}
	defer resp.Body.Close()

	// Gone endpoints are pruned so we stop retrying dead browsers.
	if resp.StatusCode == 410 || resp.StatusCode == 404 {
		if err := n.subRepo.DeleteByEndpoint(ctx, sub.UserID, sub.Endpoint); err != nil {
			logger.Warn("Push: failed to prune expired subscription: %v", err)
		}
	}
}
