package models

import "time"

// ClaimStatus is the recorded outcome of a completed top-up attempt.
type ClaimStatus string

const (
	StatusSuccess      ClaimStatus = "success"
	StatusSuccessAdmin ClaimStatus = "success_admin"
	StatusFailed       ClaimStatus = "failed"
)

// TransactionRecord is one completed top-up, immutable once created.
type TransactionRecord struct {
	ID           string      `json:"id"` // uuid
	Timestamp    time.Time   `json:"timestamp"`
	Network      string      `json:"network"`       // MTN | Glo | 9mobile | Airtel
	MobileNumber string      `json:"mobile_number"` // validated 11-digit number
	Amount       int         `json:"amount"`        // fixed per-claim amount in NGN
	Status       ClaimStatus `json:"status"`
}

// SiteState is a point-in-time copy of the ledger's policy state.
type SiteState struct {
	IsOnline    bool `json:"isOnline"`
	ClaimLimit  int  `json:"claimLimit"`
	ClaimsToday int  `json:"claimsToday"`
}

// ClaimRequest is the public top-up request body.
type ClaimRequest struct {
	Network      string `json:"network"`
	MobileNumber string `json:"mobile_number"`
}

// AdminRequest carries the shared PIN checked on every admin call.
type AdminRequest struct {
	PIN string `json:"pin"`
}

// SetLimitRequest sets the daily claim limit.
type SetLimitRequest struct {
	PIN   string `json:"pin"`
	Limit *int   `json:"limit"`
}

// AdminSendRequest is a forced top-up that bypasses admission checks.
type AdminSendRequest struct {
	PIN          string `json:"pin"`
	Network      string `json:"network"`
	MobileNumber string `json:"mobile_number"`
}

// AdminState is the admin view of the ledger plus derived totals.
type AdminState struct {
	IsOnline         bool `json:"isOnline"`
	ClaimLimit       int  `json:"claimLimit"`
	ClaimsToday      int  `json:"claimsToday"`
	TotalAmountToday int  `json:"totalAmountToday"`
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
