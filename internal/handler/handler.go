package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/apppowertechnology/polsa-airtime-backend/internal/models"
	"github.com/apppowertechnology/polsa-airtime-backend/internal/service"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// SubmitClaim handles POST /api/claim
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.SubmitClaim(r.Context(), req.Network, req.MobileNumber))
}

// AdminLogin handles POST /api/admin/login
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminLogin(req.PIN))
}

// AdminState handles POST /api/admin/state
func (h *Handler) AdminState(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminState(req.PIN))
}

// AdminHistory handles POST /api/admin/history
func (h *Handler) AdminHistory(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminHistory(req.PIN))
}

// AdminToggle handles POST /api/admin/toggle
func (h *Handler) AdminToggle(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminToggle(r.Context(), req.PIN))
}

// AdminSetLimit handles POST /api/admin/limit
func (h *Handler) AdminSetLimit(w http.ResponseWriter, r *http.Request) {
	var req models.SetLimitRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminSetLimit(r.Context(), req.PIN, req.Limit))
}

// AdminReset handles POST /api/admin/reset
func (h *Handler) AdminReset(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminReset(r.Context(), req.PIN))
}

// AdminSend handles POST /api/admin/send
func (h *Handler) AdminSend(w http.ResponseWriter, r *http.Request) {
	var req models.AdminSendRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondResult(w, h.service.AdminSend(r.Context(), req.PIN, req.Network, req.MobileNumber))
}

// decode reads and decodes the request body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	return true
}

func (h *Handler) respondResult(w http.ResponseWriter, res service.Result) {
	h.respondJSON(w, res.Status, models.APIResponse{
		Success: res.Success,
		Message: res.Message,
		Data:    res.Data,
	})
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.APIResponse{Success: false, Message: message})
}
