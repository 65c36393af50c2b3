package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

// Pusher delivers browser push notifications
type Pusher interface {
	NotifyAll(ctx context.Context, payload notify.Payload) notify.Result
	NotifyVolunteers(ctx context.Context, volunteerIDs []string, payload notify.Payload) notify.Result
}

// Notifier groups the best-effort notification channels. Any field may be nil;
// a nil Notifier sends nothing.
type Notifier struct {
	Push      Pusher
	Mailer    notify.Mailer
	PublicURL string
}

func (n *Notifier) pushAll(ctx context.Context, payload notify.Payload) {
	if n == nil || n.Push == nil {
		return
	}
	n.Push.NotifyAll(ctx, payload)
}

func (n *Notifier) pushTo(ctx context.Context, volunteerIDs []string, payload notify.Payload) {
	if n == nil || n.Push == nil || len(volunteerIDs) == 0 {
		return
	}
	n.Push.NotifyVolunteers(ctx, volunteerIDs, payload)
}

func (n *Notifier) email(ctx context.Context, logger *zap.Logger, to *db.Volunteer, subject, body string) {
	if n == nil || n.Mailer == nil || to == nil || to.Email == "" {
		return
	}
	if err := n.Mailer.SendEmail(ctx, to.Email, subject, body); err != nil {
		logger.Warn("Failed to send email", zap.String("volunteer_id", to.ID), zap.Error(err))
	}
}

// link builds an absolute URL to a page of the web app
func (n *Notifier) link(path string) string {
	if n == nil || n.PublicURL == "" {
		return path
	}
	return strings.TrimRight(n.PublicURL, "/") + path
}
