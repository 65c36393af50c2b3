package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

func (d *DB) querySubscriptions(ctx context.Context, where string, args ...any) ([]db.PushSubscription, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, volunteer_id, endpoint, p256dh_key, auth_key, created_at
		FROM push_subscription `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []db.PushSubscription
	for rows.Next() {
		var s db.PushSubscription
		if err := rows.Scan(&s.ID, &s.VolunteerID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push subscriptions: %w", err)
	}

	return subs, nil
}

// GetPushSubscriptions retrieves every registered subscription
func (d *DB) GetPushSubscriptions(ctx context.Context) ([]db.PushSubscription, error) {
	return d.querySubscriptions(ctx, "")
}

// GetPushSubscriptionsForVolunteers retrieves the subscriptions owned by any of the given volunteers
func (d *DB) GetPushSubscriptionsForVolunteers(ctx context.Context, volunteerIDs []string) ([]db.PushSubscription, error) {
	if len(volunteerIDs) == 0 {
		return nil, nil
	}
	return d.querySubscriptions(ctx, "WHERE volunteer_id = ANY($1)", volunteerIDs)
}

// InsertPushSubscription registers a subscription, refreshing the keys if the endpoint is already known
func (d *DB) InsertPushSubscription(ctx context.Context, s *db.PushSubscription) error {
	err := d.pool.QueryRow(ctx, `
		INSERT INTO push_subscription (id, volunteer_id, endpoint, p256dh_key, auth_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (volunteer_id, endpoint)
		DO UPDATE SET p256dh_key = EXCLUDED.p256dh_key, auth_key = EXCLUDED.auth_key
		RETURNING id
	`, s.ID, s.VolunteerID, s.Endpoint, s.P256dhKey, s.AuthKey, s.CreatedAt.UTC()).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert push subscription: %w", mapError(err))
	}
	return nil
}

// DeletePushSubscription removes a subscription by id
func (d *DB) DeletePushSubscription(ctx context.Context, id string) error {
	return d.execOne(ctx, d.pool, "delete push subscription", `DELETE FROM push_subscription WHERE id = $1`, id)
}

// DeletePushSubscriptionByEndpoint removes a volunteer's subscription for an endpoint
func (d *DB) DeletePushSubscriptionByEndpoint(ctx context.Context, volunteerID, endpoint string) error {
	return d.execOne(ctx, d.pool, "delete push subscription",
		`DELETE FROM push_subscription WHERE volunteer_id = $1 AND endpoint = $2`, volunteerID, endpoint)
}
