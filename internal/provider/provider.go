package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/validation"
)

// ClaimAmount is the fixed top-up amount in NGN per claim.
const ClaimAmount = 100

// Policy constants sent with every upstream request; not caller-supplied.
const (
	airtimeType  = "VTU"
	portedNumber = true
)

// OutcomeKind is the four-way classification of an upstream attempt.
type OutcomeKind int

const (
	// OutcomeSucceeded: 2xx response from the provider.
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeRejected: provider answered with a business-logic failure.
	OutcomeRejected
	// OutcomeUnreachable: no usable response (transport error or gateway status).
	OutcomeUnreachable
	// OutcomeSetupFailed: the request could not be constructed or sent at all.
	OutcomeSetupFailed
)

// Outcome is the classified result of one upstream top-up call.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int             // provider status for OutcomeRejected
	Message    string          // provider message/detail, or a fallback
	Payload    json.RawMessage // raw provider body for OutcomeSucceeded
}

// Client performs the outbound call to the upstream airtime API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, hc *http.Client) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: hc}
}

type topupRequest struct {
	Network      int    `json:"network"`
	MobileNumber string `json:"mobile_number"`
	Amount       int    `json:"amount"`
	AirtimeType  string `json:"airtime_type"`
	PortedNumber bool   `json:"Ported_number"`
}

// providerBody covers the fields we interpret from the upstream response;
// the rest is carried through opaquely.
type providerBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Submit sends one fixed-amount top-up and classifies the result. The
// classification must stay four-way: callers map each kind to a distinct
// response code.
func (c *Client) Submit(ctx context.Context, claim validation.ValidatedClaim, apiKey string) Outcome {
	body := topupRequest{
		Network:      claim.NetworkCode,
		MobileNumber: claim.MobileNumber,
		Amount:       ClaimAmount,
		AirtimeType:  airtimeType,
		PortedNumber: portedNumber,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return Outcome{Kind: OutcomeSetupFailed, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/airtime", bytes.NewReader(b))
	if err != nil {
		return Outcome{Kind: OutcomeSetupFailed, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

	rsp, err := c.httpc.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeUnreachable, Message: "airtime provider unreachable"}
	}
	defer rsp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(rsp.Body, 1<<20))

	var parsed providerBody
	_ = json.Unmarshal(raw, &parsed) // tolerate non-JSON bodies

	switch {
	case rsp.StatusCode >= 200 && rsp.StatusCode < 300:
		msg := parsed.Message
		if msg == "" {
			msg = "airtime sent successfully"
		}
		return Outcome{
			Kind:       OutcomeSucceeded,
			StatusCode: rsp.StatusCode,
			Message:    msg,
			Payload:    json.RawMessage(raw),
		}

	case rsp.StatusCode == http.StatusBadGateway ||
		rsp.StatusCode == http.StatusServiceUnavailable ||
		rsp.StatusCode == http.StatusGatewayTimeout:
		// A gateway-class status means the provider itself never handled
		// the request; treat it the same as a transport failure.
		return Outcome{Kind: OutcomeUnreachable, StatusCode: rsp.StatusCode, Message: "airtime provider unreachable"}

	default:
		msg := parsed.Detail
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = "the airtime provider rejected the request"
		}
		return Outcome{Kind: OutcomeRejected, StatusCode: rsp.StatusCode, Message: msg}
	}
}
