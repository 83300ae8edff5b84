package service

import (
	"context"
	"fmt"

	"cryptotopup/internal/cache"
	"cryptotopup/internal/events"
)

// AutoPurchaseTrigger resumes a purchase the user saved before topping up.
type AutoPurchaseTrigger interface {
	// Trigger reports whether a purchase request was queued.
	Trigger(ctx context.Context, userID, paymentID uint) (bool, error)
}

type autoPurchaseTrigger struct {
	cache     *cache.Client
	publisher events.Publisher
}

// NewAutoPurchaseTrigger checks saved carts in redis and queues purchase requests.
func NewAutoPurchaseTrigger(cache *cache.Client, publisher events.Publisher) AutoPurchaseTrigger {
	return &autoPurchaseTrigger{cache: cache, publisher: publisher}
}

func savedCartKey(userID uint) string {
	return fmt.Sprintf("cart:saved:%d", userID)
}

func (t *autoPurchaseTrigger) Trigger(ctx context.Context, userID, paymentID uint) (bool, error) {
	if !t.cache.Exists(ctx, savedCartKey(userID)) {
		return false, nil
	}
	err := t.publisher.Publish(ctx, events.TypeAutoPurchaseRequested, map[string]interface{}{
		"user_id":    userID,
		"payment_id": paymentID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
