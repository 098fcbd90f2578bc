package ledger

import (
	"sync"
	"time"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
)

// Reason explains an admission decision.
type Reason string

const (
	ReasonAdmitted      Reason = "admitted"
	ReasonAdminBypass   Reason = "admin_bypass"
	ReasonSiteOffline   Reason = "site_offline"
	ReasonQuotaExceeded Reason = "quota_exceeded"
)

// Decision is the transient result of evaluating the admission policy.
// It is never persisted.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Ledger owns all shared mutable state: the site switch, the daily quota,
// the claims-today counter and the ordered transaction log (newest first).
// Every operation is a single critical section; callers never observe a
// partially-updated state.
type Ledger struct {
	mu          sync.Mutex
	online      bool
	claimLimit  int
	claimsToday int
	records     []models.TransactionRecord
}

func New(online bool, claimLimit int) *Ledger {
	if claimLimit < 0 {
		claimLimit = 0
	}
	return &Ledger{
		online:     online,
		claimLimit: claimLimit,
	}
}

// Reserve evaluates the admission policy for a claim and, when admitted,
// consumes one quota slot in the same critical section. The check order is
// fixed: the admin phone bypasses both the online and quota checks; offline
// is checked before quota. A separate check-then-increment would let
// concurrent claims overrun the limit.
func (l *Ledger) Reserve(mobileNumber, adminPhone string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if adminPhone != "" && mobileNumber == adminPhone {
		return Decision{Allowed: true, Reason: ReasonAdminBypass}
	}
	if !l.online {
		return Decision{Allowed: false, Reason: ReasonSiteOffline}
	}
	if l.claimsToday >= l.claimLimit {
		return Decision{Allowed: false, Reason: ReasonQuotaExceeded}
	}

	l.claimsToday++
	return Decision{Allowed: true, Reason: ReasonAdmitted}
}

// Release returns a reserved quota slot after the upstream call failed.
// Only counted reservations are returned, so claimsToday always equals the
// number of successful non-admin claims once in-flight claims settle.
func (l *Ledger) Release(d Decision) {
	if d.Reason != ReasonAdmitted {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.claimsToday > 0 {
		l.claimsToday--
	}
}

// Append prepends a completed transaction to the log.
func (l *Ledger) Append(rec models.TransactionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append([]models.TransactionRecord{rec}, l.records...)
}

// Snapshot returns a consistent copy of the policy state.
func (l *Ledger) Snapshot() models.SiteState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return models.SiteState{
		IsOnline:    l.online,
		ClaimLimit:  l.claimLimit,
		ClaimsToday: l.claimsToday,
	}
}

// History returns a copy of the full transaction log, newest first.
func (l *Ledger) History() []models.TransactionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.TransactionRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) SetOnline(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.online = v
}

// Toggle flips the site switch and returns the new value.
func (l *Ledger) Toggle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.online = !l.online
	return l.online
}

// SetLimit sets the daily claim limit. Negative values are clamped to zero
// by callers; the ledger itself only stores what it is given.
func (l *Ledger) SetLimit(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.claimLimit = n
}

// ResetCount zeroes the claims-today counter. There is no automatic reset
// on a day boundary; this is the only way the counter decreases to zero.
func (l *Ledger) ResetCount() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.claimsToday = 0
}

// TotalAmountForToday sums the amount of success-variant records whose
// timestamp falls on the same calendar day as now. Recomputed on demand.
func (l *Ledger) TotalAmountForToday(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, rec := range l.records {
		if rec.Status != models.StatusSuccess && rec.Status != models.StatusSuccessAdmin {
			continue
		}
		if sameDay(rec.Timestamp, now) {
			total += rec.Amount
		}
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
