package cooldown

import (
	"context"
	"time"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/cache"
)

// Guard throttles repeat claims from the same phone number. It sits in
// front of the admission policy; a phone in cooldown is refused before the
// ledger is touched.
type Guard struct {
	cache cache.Cache
	ttl   time.Duration
}

func New(c cache.Cache, ttl time.Duration) *Guard {
	return &Guard{cache: c, ttl: ttl}
}

// Active reports whether the phone is still inside its cooldown window.
// Cache errors fail open: a broken cache must not block claims.
func (g *Guard) Active(ctx context.Context, mobileNumber string) bool {
	if g == nil || g.ttl <= 0 {
		return false
	}
	_, err := g.cache.Get(ctx, key(mobileNumber))
	return err == nil
}

// Touch starts a cooldown window for the phone after a successful claim.
func (g *Guard) Touch(ctx context.Context, mobileNumber string) {
	if g == nil || g.ttl <= 0 {
		return
	}
	_ = g.cache.Set(ctx, key(mobileNumber), []byte("1"), g.ttl)
}

// Clear removes an active cooldown, used by admin tooling and tests.
func (g *Guard) Clear(ctx context.Context, mobileNumber string) {
	if g == nil {
		return
	}
	_ = g.cache.Delete(ctx, key(mobileNumber))
}

func key(mobileNumber string) string {
	return "cooldown:" + mobileNumber
}
