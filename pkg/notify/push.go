// Package notify delivers best-effort notifications: browser push through
// VAPID web push, and email through any Mailer.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// Payload is the JSON body delivered to the service worker
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// SubscriptionStore is the subset of db.PushSubscriptionStore the sender needs
type SubscriptionStore interface {
	GetPushSubscriptions(ctx context.Context) ([]db.PushSubscription, error)
	GetPushSubscriptionsForVolunteers(ctx context.Context, volunteerIDs []string) ([]db.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, id string) error
}

// SendFunc delivers one encrypted push message
type SendFunc func(ctx context.Context, message []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Result counts the outcome of one fan-out
type Result struct {
	Sent    int64
	Removed int64
	Failed  int64
}

// PushSender fans a payload out to stored subscriptions with bounded concurrency.
// Subscriptions whose endpoint answers 410 Gone are deleted.
type PushSender struct {
	cfg    config.PushConfig
	store  SubscriptionStore
	logger *zap.Logger
	send   SendFunc
}

// NewPushSender creates a sender. A nil send uses webpush.SendNotificationWithContext.
func NewPushSender(cfg config.PushConfig, store SubscriptionStore, logger *zap.Logger, send SendFunc) *PushSender {
	if send == nil {
		send = webpush.SendNotificationWithContext
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &PushSender{cfg: cfg, store: store, logger: logger, send: send}
}

// NotifyAll sends the payload to every subscription
func (s *PushSender) NotifyAll(ctx context.Context, payload Payload) Result {
	if !s.enabled() {
		return Result{}
	}
	subs, err := s.store.GetPushSubscriptions(ctx)
	if err != nil {
		s.logger.Error("Failed to list push subscriptions", zap.Error(err))
		return Result{}
	}
	return s.fanOut(ctx, subs, payload)
}

// NotifyVolunteers sends the payload to the subscriptions of the given volunteers
func (s *PushSender) NotifyVolunteers(ctx context.Context, volunteerIDs []string, payload Payload) Result {
	if !s.enabled() || len(volunteerIDs) == 0 {
		return Result{}
	}
	subs, err := s.store.GetPushSubscriptionsForVolunteers(ctx, volunteerIDs)
	if err != nil {
		s.logger.Error("Failed to list push subscriptions", zap.Error(err), zap.Strings("volunteer_ids", volunteerIDs))
		return Result{}
	}
	return s.fanOut(ctx, subs, payload)
}

func (s *PushSender) enabled() bool {
	if !s.cfg.Enabled() {
		s.logger.Debug("VAPID keys not configured, skipping push")
		return false
	}
	return true
}

func (s *PushSender) fanOut(ctx context.Context, subs []db.PushSubscription, payload Payload) Result {
	if len(subs) == 0 {
		return Result{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal push payload", zap.Error(err))
		return Result{}
	}

	var sent, removed, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for _, sub := range subs {
		p.Go(func() {
			switch s.sendOne(ctx, sub, data) {
			case outcomeSent:
				sent.Add(1)
			case outcomeRemoved:
				removed.Add(1)
			default:
				failed.Add(1)
			}
		})
	}
	p.Wait()

	result := Result{Sent: sent.Load(), Removed: removed.Load(), Failed: failed.Load()}
	s.logger.Debug("Push fan-out finished",
		zap.String("title", payload.Title),
		zap.Int64("sent", result.Sent),
		zap.Int64("removed", result.Removed),
		zap.Int64("failed", result.Failed))
	return result
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRemoved
	outcomeFailed
)

func (s *PushSender) sendOne(ctx context.Context, sub db.PushSubscription, data []byte) outcome {
	resp, err := s.send(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTLSeconds,
	})
	if err != nil {
		s.logger.Warn("Failed to send push notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return outcomeFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		s.logger.Info("Push subscription expired, removing", zap.String("subscription_id", sub.ID))
		if err := s.store.DeletePushSubscription(ctx, sub.ID); err != nil {
			s.logger.Error("Failed to delete expired push subscription", zap.String("subscription_id", sub.ID), zap.Error(err))
		}
		return outcomeRemoved
	}

	if resp.StatusCode >= 400 {
		s.logger.Warn("Unexpected push status", zap.String("endpoint", sub.Endpoint), zap.Int("status", resp.StatusCode))
		return outcomeFailed
	}
	return outcomeSent
}
