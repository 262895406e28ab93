package usecase

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Delay is a randomized pause: Base plus a uniform offset in [-Jitter, +Jitter].
type Delay struct {
	Base   time.Duration
	Jitter time.Duration
}

// PacingConfig holds every pause the harvest applies between browser actions.
type PacingConfig struct {
	PageLoad      Delay
	AfterSearch   Delay
	BetweenScroll Delay
	DetailSettle  Delay
	BetweenItems  Delay
	BetweenAreas  Delay
	LayoutSettle  Delay
}

// DefaultPacing mirrors the pauses of a human browsing the result list.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		PageLoad:      Delay{Base: 3000 * time.Millisecond, Jitter: 500 * time.Millisecond},
		AfterSearch:   Delay{Base: 3000 * time.Millisecond, Jitter: 500 * time.Millisecond},
		BetweenScroll: Delay{Base: 2000 * time.Millisecond, Jitter: 500 * time.Millisecond},
		DetailSettle:  Delay{Base: 2000 * time.Millisecond},
		BetweenItems:  Delay{Base: 500 * time.Millisecond, Jitter: 200 * time.Millisecond},
		BetweenAreas:  Delay{Base: 2500 * time.Millisecond, Jitter: 500 * time.Millisecond},
		LayoutSettle:  Delay{Base: 2000 * time.Millisecond},
	}
}

// Pacer turns Delays into actual sleeps.
type Pacer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer seeds a pacer from the clock.
func NewPacer() *Pacer {
	now := uint64(time.Now().UnixNano())
	return &Pacer{
		rng:   rand.New(rand.NewPCG(now, now>>1)),
		sleep: sleepContext,
	}
}

// Duration draws the next concrete pause for d. It is never negative.
func (p *Pacer) Duration(d Delay) time.Duration {
	if d.Jitter <= 0 {
		if d.Base < 0 {
			return 0
		}
		return d.Base
	}
	p.mu.Lock()
	offset := time.Duration(p.rng.Int64N(int64(2*d.Jitter)+1)) - d.Jitter
	p.mu.Unlock()
	if out := d.Base + offset; out > 0 {
		return out
	}
	return 0
}

// Pause sleeps for a draw of d, returning early with ctx.Err() on cancel.
func (p *Pacer) Pause(ctx context.Context, d Delay) error {
	wait := p.Duration(d)
	if wait == 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
