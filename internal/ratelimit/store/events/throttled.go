package events

import (
	"context"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"confide/internal/ratelimit/models"
	"confide/internal/ratelimit/ports"
	dErrors "confide/pkg/domain-errors"
)

// throttleMaxKeys bounds the per-address GCRA state; least recently seen
// addresses are evicted first.
const throttleMaxKeys = 65536

// Throttled caps how many checks per second one source address may send to
// the wrapped EventLog. Only CountSince is metered: an admitted check's Record
// always goes through so the event log never undercounts.
//
// A shed count fails with CodeRateLimited. Callers treat that as a rejection
// of the flooding address, not as an upstream failure.
type Throttled struct {
	next    ports.EventLog
	limiter throttled.RateLimiterCtx
}

// NewThrottled allows perSecond checks per second per address with an equal
// burst. perSecond <= 0 returns next unchanged.
func NewThrottled(next ports.EventLog, perSecond int) (ports.EventLog, error) {
	if perSecond <= 0 {
		return next, nil
	}
	store, err := memstore.NewCtx(throttleMaxKeys)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create throttle store")
	}
	limiter, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerSec(perSecond),
		MaxBurst: perSecond,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create throttle limiter")
	}
	return &Throttled{next: next, limiter: limiter}, nil
}

func (t *Throttled) acquire(ctx context.Context, address string) error {
	limited, _, err := t.limiter.RateLimitCtx(ctx, address, 1)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "event log throttle")
	}
	if limited {
		return dErrors.New(dErrors.CodeRateLimited, "event log call shed")
	}
	return nil
}

func (t *Throttled) CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	if err := t.acquire(ctx, address); err != nil {
		return 0, err
	}
	return t.next.CountSince(ctx, address, class, since)
}

func (t *Throttled) Record(ctx context.Context, address string, class models.ClassName) error {
	return t.next.Record(ctx, address, class)
}
