package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/cache"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/cooldown"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/events"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/features"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/ledger"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/provider"
)

const (
	testAdminPhone = "08099999999"
	testAdminPIN   = "1234"
	testPhone      = "08012345678"
)

// okUpstream answers every top-up with a 2xx and counts hits.
func okUpstream(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"topup processed"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestService(upstreamURL string, l *ledger.Ledger, mutate func(*Deps)) *Service {
	deps := Deps{
		Ledger:     l,
		Provider:   provider.New(upstreamURL, nil),
		Events:     events.NewManager(false),
		Flags:      features.NewManager(),
		APIKey:     "test-key",
		AdminPhone: testAdminPhone,
		AdminPIN:   testAdminPIN,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func TestSubmitClaim_Success(t *testing.T) {
	srv, hits := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusOK || !res.Success {
		t.Fatalf("result = %+v, want 200 success", res)
	}
	if *hits != 1 {
		t.Fatalf("upstream hits = %d, want 1", *hits)
	}

	snap := l.Snapshot()
	if snap.ClaimsToday != 1 {
		t.Fatalf("claimsToday = %d, want 1", snap.ClaimsToday)
	}

	hist := l.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Status != models.StatusSuccess {
		t.Errorf("record status = %q, want success", hist[0].Status)
	}
	if hist[0].Amount != provider.ClaimAmount {
		t.Errorf("record amount = %d, want %d", hist[0].Amount, provider.ClaimAmount)
	}
}

func TestSubmitClaim_ValidationFailureSkipsLedger(t *testing.T) {
	srv, hits := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "Safaricom", testPhone)
	if res.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Status)
	}
	if *hits != 0 {
		t.Fatal("provider must not be contacted for invalid input")
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("ledger mutated on validation failure")
	}
}

func TestSubmitClaim_MissingAPIKey(t *testing.T) {
	srv, hits := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, func(d *Deps) { d.APIKey = "" })

	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.Status)
	}
	if *hits != 0 {
		t.Fatal("provider must not be contacted without an API key")
	}
}

func TestSubmitClaim_SiteOffline(t *testing.T) {
	srv, hits := okUpstream(t)
	l := ledger.New(false, 5)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.Status)
	}
	if *hits != 0 {
		t.Fatal("provider must not be contacted while offline")
	}
}

func TestSubmitClaim_QuotaExceeded(t *testing.T) {
	srv, _ := okUpstream(t)
	l := ledger.New(true, 1)
	svc := newTestService(srv.URL, l, nil)

	if res := svc.SubmitClaim(context.Background(), "MTN", testPhone); res.Status != http.StatusOK {
		t.Fatalf("first claim status = %d, want 200", res.Status)
	}
	res := svc.SubmitClaim(context.Background(), "MTN", "08112345678")
	if res.Status != http.StatusTooManyRequests {
		t.Fatalf("second claim status = %d, want 429", res.Status)
	}
	if l.Snapshot().ClaimsToday != 1 {
		t.Fatalf("claimsToday = %d, want 1", l.Snapshot().ClaimsToday)
	}
}

func TestSubmitClaim_AdminPhoneBypassesChecks(t *testing.T) {
	srv, hits := okUpstream(t)
	// Offline and quota exhausted: the bypass phone still goes through.
	l := ledger.New(false, 0)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "MTN", testAdminPhone)
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if *hits != 1 {
		t.Fatal("provider should have been contacted")
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("admin-phone claim must not increment claimsToday")
	}

	hist := l.History()
	if len(hist) != 1 || hist[0].Status != models.StatusSuccess {
		t.Fatalf("history = %+v, want one success record", hist)
	}
}

func TestSubmitClaim_RejectedReleasesSlotAndPropagatesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"insufficient wallet balance"}`))
	}))
	t.Cleanup(srv.Close)

	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want upstream's 422", res.Status)
	}
	if res.Message != "insufficient wallet balance" {
		t.Errorf("message = %q", res.Message)
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("failed claim must not consume a quota slot")
	}
	if len(l.History()) != 0 {
		t.Fatal("failed attempts are not logged")
	}
}

func TestSubmitClaim_UnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)

	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.Status)
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("unreachable upstream must not consume a quota slot")
	}
}

func TestSubmitClaim_Cooldown(t *testing.T) {
	srv, _ := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, func(d *Deps) {
		d.Cooldown = cooldown.New(cache.NewInMemoryCache(), time.Minute)
		d.Flags.Register(features.FeatureCooldownEnabled, true, "")
	})

	if res := svc.SubmitClaim(context.Background(), "MTN", testPhone); res.Status != http.StatusOK {
		t.Fatalf("first claim status = %d, want 200", res.Status)
	}
	res := svc.SubmitClaim(context.Background(), "MTN", testPhone)
	if res.Status != http.StatusTooManyRequests {
		t.Fatalf("cooldown claim status = %d, want 429", res.Status)
	}
	if l.Snapshot().ClaimsToday != 1 {
		t.Fatal("cooldown denial must not touch the ledger")
	}

	// The admin phone is exempt from the cooldown.
	if res := svc.SubmitClaim(context.Background(), "MTN", testAdminPhone); res.Status != http.StatusOK {
		t.Fatalf("admin claim status = %d, want 200", res.Status)
	}
	if res := svc.SubmitClaim(context.Background(), "MTN", testAdminPhone); res.Status != http.StatusOK {
		t.Fatalf("repeat admin claim status = %d, want 200", res.Status)
	}
}

func TestAdminSend_LogsAdminStatusWithoutQuota(t *testing.T) {
	srv, _ := okUpstream(t)
	// Offline with zero limit: adminSend ignores admission entirely.
	l := ledger.New(false, 0)
	svc := newTestService(srv.URL, l, nil)

	res := svc.AdminSend(context.Background(), testAdminPIN, "Glo", testPhone)
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (message: %s)", res.Status, res.Message)
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("adminSend must never increment claimsToday")
	}

	hist := l.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Status != models.StatusSuccessAdmin {
		t.Errorf("record status = %q, want success_admin", hist[0].Status)
	}
	if hist[0].Network != "Glo" {
		t.Errorf("record network = %q, want Glo", hist[0].Network)
	}
}

func TestAdmin_InvalidPINLeavesStateUnchanged(t *testing.T) {
	srv, hits := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)
	ctx := context.Background()

	before := l.Snapshot()

	limit := 1
	results := []Result{
		svc.AdminState("wrong"),
		svc.AdminHistory("wrong"),
		svc.AdminToggle(ctx, "wrong"),
		svc.AdminSetLimit(ctx, "wrong", &limit),
		svc.AdminReset(ctx, "wrong"),
		svc.AdminSend(ctx, "wrong", "MTN", testPhone),
		svc.AdminState(""), // empty PIN never matches
	}

	for i, res := range results {
		if res.Status != http.StatusForbidden {
			t.Errorf("op %d status = %d, want 403", i, res.Status)
		}
	}
	if *hits != 0 {
		t.Fatal("forbidden adminSend must not reach the provider")
	}
	if after := l.Snapshot(); after != before {
		t.Fatalf("state changed: before %+v after %+v", before, after)
	}
}

func TestAdminLoginAndState(t *testing.T) {
	srv, _ := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)

	if res := svc.AdminLogin(testAdminPIN); res.Status != http.StatusOK || !res.Success {
		t.Fatalf("login = %+v", res)
	}
	if res := svc.AdminLogin("0000"); res.Status != http.StatusForbidden {
		t.Fatalf("bad login status = %d, want 403", res.Status)
	}

	// One successful claim, then the state view reflects it.
	if res := svc.SubmitClaim(context.Background(), "MTN", testPhone); res.Status != http.StatusOK {
		t.Fatalf("claim failed: %+v", res)
	}

	res := svc.AdminState(testAdminPIN)
	state, ok := res.Data.(models.AdminState)
	if !ok {
		t.Fatalf("state data type = %T", res.Data)
	}
	if state.ClaimsToday != 1 {
		t.Errorf("claimsToday = %d, want 1", state.ClaimsToday)
	}
	if state.TotalAmountToday != provider.ClaimAmount {
		t.Errorf("totalAmountToday = %d, want %d", state.TotalAmountToday, provider.ClaimAmount)
	}
}

func TestAdminSetLimitValidation(t *testing.T) {
	srv, _ := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)
	ctx := context.Background()

	if res := svc.AdminSetLimit(ctx, testAdminPIN, nil); res.Status != http.StatusBadRequest {
		t.Fatalf("nil limit status = %d, want 400", res.Status)
	}

	neg := -1
	if res := svc.AdminSetLimit(ctx, testAdminPIN, &neg); res.Status != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d, want 400", res.Status)
	}

	n := 7
	if res := svc.AdminSetLimit(ctx, testAdminPIN, &n); res.Status != http.StatusOK {
		t.Fatalf("set limit status = %d, want 200", res.Status)
	}
	if l.Snapshot().ClaimLimit != 7 {
		t.Fatalf("claimLimit = %d, want 7", l.Snapshot().ClaimLimit)
	}
}

func TestAdminToggleAndReset(t *testing.T) {
	srv, _ := okUpstream(t)
	l := ledger.New(true, 5)
	svc := newTestService(srv.URL, l, nil)
	ctx := context.Background()

	if res := svc.AdminToggle(ctx, testAdminPIN); res.Status != http.StatusOK {
		t.Fatalf("toggle status = %d", res.Status)
	}
	if l.Snapshot().IsOnline {
		t.Fatal("site should be offline after toggle")
	}

	l.SetOnline(true)
	svc.SubmitClaim(ctx, "MTN", testPhone)
	if res := svc.AdminReset(ctx, testAdminPIN); res.Status != http.StatusOK {
		t.Fatalf("reset status = %d", res.Status)
	}
	if l.Snapshot().ClaimsToday != 0 {
		t.Fatal("claimsToday should be zero after reset")
	}
}
