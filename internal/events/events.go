package events

import (
	"context"
	"sync"
	"time"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/ledger"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventClaimSucceeded is emitted after a top-up is recorded in the ledger
	EventClaimSucceeded EventType = "claim.succeeded"
	// EventClaimDenied is emitted when the admission policy refuses a claim
	EventClaimDenied EventType = "claim.denied"
	// EventAdminAction is emitted for every PIN-gated mutation
	EventAdminAction EventType = "admin.action"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// ClaimSucceededData contains data for claim succeeded events.
type ClaimSucceededData struct {
	Record models.TransactionRecord
	Admin  bool
}

// ClaimDeniedData contains data for claim denied events.
type ClaimDeniedData struct {
	MobileNumber string
	Reason       ledger.Reason
}

// AdminActionData contains data for admin action events.
type AdminActionData struct {
	Op    string
	State models.SiteState
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so a slow subscriber never blocks a claim.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if m == nil || !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishClaimSucceeded publishes a claim succeeded event.
func (m *Manager) PublishClaimSucceeded(ctx context.Context, rec models.TransactionRecord, admin bool) {
	m.Publish(ctx, EventClaimSucceeded, ClaimSucceededData{Record: rec, Admin: admin})
}

// PublishClaimDenied publishes a claim denied event.
func (m *Manager) PublishClaimDenied(ctx context.Context, mobileNumber string, reason ledger.Reason) {
	m.Publish(ctx, EventClaimDenied, ClaimDeniedData{MobileNumber: mobileNumber, Reason: reason})
}

// PublishAdminAction publishes an admin action event with the state after
// the mutation.
func (m *Manager) PublishAdminAction(ctx context.Context, op string, state models.SiteState) {
	m.Publish(ctx, EventAdminAction, AdminActionData{Op: op, State: state})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
