package notify

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// pushTimeout bounds one background fan-out
const pushTimeout = 30 * time.Second

// Pusher fans a payload out to push subscriptions
type Pusher interface {
	NotifyAll(ctx context.Context, payload Payload) Result
	NotifyVolunteers(ctx context.Context, volunteerIDs []string, payload Payload) Result
}

// AsyncPusher runs each fan-out in the background, detached from the caller's
// cancellation. The returned Result is always zero. Close blocks until pending
// fan-outs finish.
type AsyncPusher struct {
	next   Pusher
	logger *zap.Logger
	wg     *conc.WaitGroup
}

func NewAsyncPusher(next Pusher, logger *zap.Logger) *AsyncPusher {
	return &AsyncPusher{next: next, logger: logger, wg: conc.NewWaitGroup()}
}

func (p *AsyncPusher) NotifyAll(ctx context.Context, payload Payload) Result {
	p.run(ctx, payload, func(ctx context.Context) Result {
		return p.next.NotifyAll(ctx, payload)
	})
	return Result{}
}

func (p *AsyncPusher) NotifyVolunteers(ctx context.Context, volunteerIDs []string, payload Payload) Result {
	if len(volunteerIDs) == 0 {
		return Result{}
	}
	ids := append([]string(nil), volunteerIDs...)
	p.run(ctx, payload, func(ctx context.Context) Result {
		return p.next.NotifyVolunteers(ctx, ids, payload)
	})
	return Result{}
}

func (p *AsyncPusher) run(ctx context.Context, payload Payload, fanOut func(ctx context.Context) Result) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		result := fanOut(ctx)
		if result.Failed > 0 {
			p.logger.Warn("Push fan-out had failures",
				zap.String("title", payload.Title),
				zap.Int64("failed", result.Failed),
				zap.Int64("sent", result.Sent))
		}
	})
}

// Close waits for pending fan-outs
func (p *AsyncPusher) Close() {
	p.wg.Wait()
}
