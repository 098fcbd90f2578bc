package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/archive"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/cooldown"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/events"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/features"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/ledger"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/obs"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/provider"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/tracing"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/validation"
)

// Result is the outcome of one operation, ready to be written as an HTTP
// response. Every branch of the claim flow produces one; no error is
// swallowed.
type Result struct {
	Status  int
	Success bool
	Message string
	Data    interface{}
}

// Deps are the collaborators wired in main.
type Deps struct {
	Ledger   *ledger.Ledger
	Provider *provider.Client
	Cooldown *cooldown.Guard
	Archive  *archive.Store
	Events   *events.Manager
	Flags    *features.Manager
	Logger   *obs.Logger
	Metrics  *obs.Metrics

	APIKey     string
	AdminPhone string
	AdminPIN   string
}

// Service composes validator, admission policy, provider client and ledger
// into the claim flow, and exposes the PIN-gated admin operations over the
// same state.
type Service struct {
	ledger   *ledger.Ledger
	provider *provider.Client
	cooldown *cooldown.Guard
	archive  *archive.Store
	events   *events.Manager
	flags    *features.Manager
	logger   *obs.Logger
	metrics  *obs.Metrics

	apiKey     string
	adminPhone string
	adminPIN   string
}

func New(deps Deps) *Service {
	return &Service{
		ledger:     deps.Ledger,
		provider:   deps.Provider,
		cooldown:   deps.Cooldown,
		archive:    deps.Archive,
		events:     deps.Events,
		flags:      deps.Flags,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		apiKey:     deps.APIKey,
		adminPhone: deps.AdminPhone,
		adminPIN:   deps.AdminPIN,
	}
}

// SubmitClaim runs the end-to-end claim flow:
// validate -> admission (reserve) -> provider -> record.
func (s *Service) SubmitClaim(ctx context.Context, network, mobileNumber string) Result {
	start := time.Now()

	claim, err := validation.ValidateClaim(network, mobileNumber)
	if err != nil {
		s.incClaim("invalid")
		return Result{Status: http.StatusBadRequest, Message: err.Error()}
	}

	// Configuration errors short-circuit before any ledger read.
	if s.apiKey == "" {
		s.incClaim("error")
		s.logClaimError(claim, "provider API key is not configured")
		return Result{Status: http.StatusInternalServerError, Message: "service is not configured for top-ups"}
	}

	if s.flags.IsEnabled(features.FeatureCooldownEnabled) &&
		claim.MobileNumber != s.adminPhone &&
		s.cooldown.Active(ctx, claim.MobileNumber) {
		s.incClaim("cooldown")
		return Result{Status: http.StatusTooManyRequests, Message: "this number claimed recently, try again later"}
	}

	decision := s.ledger.Reserve(claim.MobileNumber, s.adminPhone)
	if !decision.Allowed {
		s.events.PublishClaimDenied(ctx, claim.MobileNumber, decision.Reason)
		switch decision.Reason {
		case ledger.ReasonSiteOffline:
			s.incClaim("denied_offline")
			return Result{Status: http.StatusServiceUnavailable, Message: "top-up claims are currently paused"}
		default: // quota exceeded
			s.incClaim("denied_quota")
			return Result{Status: http.StatusTooManyRequests, Message: "the daily claim limit has been reached, try again tomorrow"}
		}
	}

	outcome := s.submitUpstream(ctx, claim)

	switch outcome.Kind {
	case provider.OutcomeSucceeded:
		rec := s.record(ctx, claim, models.StatusSuccess)
		if decision.Reason != ledger.ReasonAdminBypass {
			s.cooldownTouch(ctx, claim.MobileNumber)
		}
		s.incClaim("success")
		s.events.PublishClaimSucceeded(ctx, rec, decision.Reason == ledger.ReasonAdminBypass)
		s.logClaim(claim, decision, "success", start)
		return Result{Status: http.StatusOK, Success: true, Message: outcome.Message, Data: outcome.Payload}

	case provider.OutcomeUnreachable:
		s.ledger.Release(decision)
		s.incClaim("unreachable")
		s.logClaim(claim, decision, "unreachable", start)
		return Result{Status: http.StatusServiceUnavailable, Message: outcome.Message}

	case provider.OutcomeRejected:
		s.ledger.Release(decision)
		s.incClaim("rejected")
		s.logClaim(claim, decision, "rejected", start)
		return Result{Status: outcome.StatusCode, Message: outcome.Message}

	default: // request setup failed
		s.ledger.Release(decision)
		s.incClaim("error")
		s.logClaimError(claim, outcome.Message)
		return Result{Status: http.StatusInternalServerError, Message: "could not reach the airtime provider"}
	}
}

// --- Admin surface ---

// forbidden is returned before any state is read or changed.
func (s *Service) forbidden(op string) Result {
	s.incAdmin(op, "forbidden")
	return Result{Status: http.StatusForbidden, Message: "invalid PIN"}
}

func (s *Service) pinOK(pin string) bool {
	return pin != "" && pin == s.adminPIN
}

func (s *Service) AdminLogin(pin string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("login")
	}
	s.incAdmin("login", "ok")
	return Result{Status: http.StatusOK, Success: true, Message: "login successful"}
}

func (s *Service) AdminState(pin string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("state")
	}

	snap := s.ledger.Snapshot()
	state := models.AdminState{
		IsOnline:         snap.IsOnline,
		ClaimLimit:       snap.ClaimLimit,
		ClaimsToday:      snap.ClaimsToday,
		TotalAmountToday: s.ledger.TotalAmountForToday(time.Now()),
	}
	s.incAdmin("state", "ok")
	return Result{Status: http.StatusOK, Success: true, Message: "site state", Data: state}
}

func (s *Service) AdminHistory(pin string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("history")
	}
	s.incAdmin("history", "ok")
	return Result{Status: http.StatusOK, Success: true, Message: "transaction history", Data: s.ledger.History()}
}

func (s *Service) AdminToggle(ctx context.Context, pin string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("toggle")
	}

	online := s.ledger.Toggle()
	s.incAdmin("toggle", "ok")
	s.events.PublishAdminAction(ctx, "toggle", s.ledger.Snapshot())

	msg := "site is now offline"
	if online {
		msg = "site is now online"
	}
	return Result{Status: http.StatusOK, Success: true, Message: msg, Data: s.ledger.Snapshot()}
}

func (s *Service) AdminSetLimit(ctx context.Context, pin string, limit *int) Result {
	if !s.pinOK(pin) {
		return s.forbidden("limit")
	}
	if limit == nil {
		return Result{Status: http.StatusBadRequest, Message: "limit is required"}
	}
	if *limit < 0 {
		return Result{Status: http.StatusBadRequest, Message: "limit must be non-negative"}
	}

	s.ledger.SetLimit(*limit)
	s.incAdmin("limit", "ok")
	s.events.PublishAdminAction(ctx, "set_limit", s.ledger.Snapshot())
	return Result{Status: http.StatusOK, Success: true, Message: "claim limit updated", Data: s.ledger.Snapshot()}
}

func (s *Service) AdminReset(ctx context.Context, pin string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("reset")
	}

	s.ledger.ResetCount()
	s.incAdmin("reset", "ok")
	s.events.PublishAdminAction(ctx, "reset_count", s.ledger.Snapshot())
	return Result{Status: http.StatusOK, Success: true, Message: "claim count reset", Data: s.ledger.Snapshot()}
}

// AdminSend forces a top-up, bypassing the admission policy entirely.
// It runs validator and provider directly, logs with the admin status and
// never consumes a quota slot.
func (s *Service) AdminSend(ctx context.Context, pin, network, mobileNumber string) Result {
	if !s.pinOK(pin) {
		return s.forbidden("send")
	}

	claim, err := validation.ValidateClaim(network, mobileNumber)
	if err != nil {
		return Result{Status: http.StatusBadRequest, Message: err.Error()}
	}
	if s.apiKey == "" {
		s.incAdmin("send", "error")
		return Result{Status: http.StatusInternalServerError, Message: "service is not configured for top-ups"}
	}

	outcome := s.submitUpstream(ctx, claim)

	switch outcome.Kind {
	case provider.OutcomeSucceeded:
		rec := s.record(ctx, claim, models.StatusSuccessAdmin)
		s.incAdmin("send", "ok")
		s.events.PublishClaimSucceeded(ctx, rec, true)
		return Result{Status: http.StatusOK, Success: true, Message: outcome.Message, Data: outcome.Payload}

	case provider.OutcomeUnreachable:
		s.incAdmin("send", "error")
		return Result{Status: http.StatusServiceUnavailable, Message: outcome.Message}

	case provider.OutcomeRejected:
		s.incAdmin("send", "error")
		return Result{Status: outcome.StatusCode, Message: outcome.Message}

	default:
		s.incAdmin("send", "error")
		return Result{Status: http.StatusInternalServerError, Message: "could not reach the airtime provider"}
	}
}

// --- internals ---

// submitUpstream wraps the provider call in a span and a latency sample.
func (s *Service) submitUpstream(ctx context.Context, claim validation.ValidatedClaim) provider.Outcome {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "provider.submit")
	span.SetAttributes(
		attribute.String("claim.network", claim.Network),
		attribute.Int("claim.amount", provider.ClaimAmount),
	)
	defer span.End()

	start := time.Now()
	outcome := s.provider.Submit(ctx, claim, s.apiKey)
	s.observeProvider(outcome, start)
	return outcome
}

// record appends the transaction to the ledger and, when enabled, the
// archive sink. The ledger stays authoritative; archive failures are
// logged and otherwise ignored.
func (s *Service) record(ctx context.Context, claim validation.ValidatedClaim, status models.ClaimStatus) models.TransactionRecord {
	rec := models.TransactionRecord{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Network:      claim.Network,
		MobileNumber: claim.MobileNumber,
		Amount:       provider.ClaimAmount,
		Status:       status,
	}

	s.ledger.Append(rec)

	if s.archive != nil && s.flags.IsEnabled(features.FeatureArchiveEnabled) {
		if err := s.archive.Insert(rec); err != nil && s.logger != nil {
			s.logger.Error(map[string]interface{}{
				"op":    "archive",
				"txn":   rec.ID,
				"error": err.Error(),
			})
		}
	}

	return rec
}

func (s *Service) cooldownTouch(ctx context.Context, mobileNumber string) {
	if s.flags.IsEnabled(features.FeatureCooldownEnabled) {
		s.cooldown.Touch(ctx, mobileNumber)
	}
}

func (s *Service) incClaim(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ClaimsTotal.WithLabelValues(result).Inc()
}

func (s *Service) incAdmin(op, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AdminOpsTotal.WithLabelValues(op, result).Inc()
}

func (s *Service) observeProvider(outcome provider.Outcome, start time.Time) {
	if s.metrics == nil {
		return
	}
	label := "succeeded"
	switch outcome.Kind {
	case provider.OutcomeRejected:
		label = "rejected"
	case provider.OutcomeUnreachable:
		label = "unreachable"
	case provider.OutcomeSetupFailed:
		label = "setup_failed"
	}
	s.metrics.ProviderLatencyMS.WithLabelValues(label).Observe(float64(time.Since(start).Milliseconds()))
}

func (s *Service) logClaim(claim validation.ValidatedClaim, decision ledger.Decision, result string, start time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.Info(map[string]interface{}{
		"op":         "claim",
		"network":    claim.Network,
		"phone":      claim.MobileNumber,
		"admission":  string(decision.Reason),
		"result":     result,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Service) logClaimError(claim validation.ValidatedClaim, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Error(map[string]interface{}{
		"op":      "claim",
		"network": claim.Network,
		"phone":   claim.MobileNumber,
		"error":   msg,
	})
}
