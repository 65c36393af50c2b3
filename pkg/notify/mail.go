package notify

import (
	"context"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Mailer sends a plain text email
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// LogMailer writes emails to the log instead of sending them.
// It is used when Gmail is not configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	// the body may carry sign-in links, so only its size is logged
	m.Logger.Info("Email not sent, no mail transport configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// AsyncMailer hands each email to a background goroutine so callers never
// wait on the transport. Close blocks until queued emails finish.
type AsyncMailer struct {
	next   Mailer
	logger *zap.Logger
	wg     *conc.WaitGroup
}

func NewAsyncMailer(next Mailer, logger *zap.Logger) *AsyncMailer {
	return &AsyncMailer{next: next, logger: logger, wg: conc.NewWaitGroup()}
}

// SendEmail queues the email and returns immediately. Delivery errors are logged.
func (m *AsyncMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	ctx = context.WithoutCancel(ctx)
	m.wg.Go(func() {
		if err := m.next.SendEmail(ctx, to, subject, body); err != nil {
			m.logger.Error("Failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	})
	return nil
}

// Close waits for queued emails. A panic in the transport is re-raised here.
func (m *AsyncMailer) Close() {
	m.wg.Wait()
}
