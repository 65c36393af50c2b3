package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// SubscriptionInput is the browser PushSubscription in the shape the web push API serialises it
type SubscriptionInput struct {
	Endpoint       string `json:"endpoint"`
	ExpirationTime *int64 `json:"expirationTime,omitempty"`
	Keys           struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe registers a push endpoint for the actor. Re-subscribing the same endpoint refreshes its keys.
func Subscribe(ctx context.Context, store db.PushSubscriptionStore, logger *zap.Logger, actor *db.Volunteer, input SubscriptionInput) (*db.PushSubscription, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	endpoint := strings.TrimSpace(input.Endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, invalid("endpoint must be an https URL")
	}
	if input.Keys.P256dh == "" || input.Keys.Auth == "" {
		return nil, invalid("subscription keys are required")
	}

	sub := &db.PushSubscription{
		ID:          newID(),
		VolunteerID: actor.ID,
		Endpoint:    endpoint,
		P256dhKey:   input.Keys.P256dh,
		AuthKey:     input.Keys.Auth,
		CreatedAt:   now().UTC(),
	}
	if err := store.InsertPushSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store push subscription: %w", err)
	}

	logger.Debug("Push subscription stored", zap.String("volunteer_id", actor.ID), zap.String("subscription_id", sub.ID))
	return sub, nil
}

// Unsubscribe removes one of the actor's push endpoints
func Unsubscribe(ctx context.Context, store db.PushSubscriptionStore, logger *zap.Logger, actor *db.Volunteer, endpoint string) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(endpoint) == "" {
		return invalid("endpoint is required")
	}

	if err := store.DeletePushSubscriptionByEndpoint(ctx, actor.ID, strings.TrimSpace(endpoint)); err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}

	logger.Debug("Push subscription removed", zap.String("volunteer_id", actor.ID))
	return nil
}
