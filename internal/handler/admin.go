package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indexnow-studio/backend/internal/contextkeys"
	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/repository"
	"github.com/indexnow-studio/backend/internal/service"
	"github.com/indexnow-studio/backend/internal/ws"
)

// AdminHandler handles the back-office endpoints.
type AdminHandler struct {
	auth     *service.AuthService
	billing  *service.BillingService
	settings *service.SettingsService
	jobs     *repository.JobRepository
	txs      *repository.TransactionRepository
	hub      *ws.Hub
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	auth *service.AuthService,
	billing *service.BillingService,
	settings *service.SettingsService,
	jobs *repository.JobRepository,
	txs *repository.TransactionRepository,
	hub *ws.Hub,
) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		billing:  billing,
		settings: settings,
		jobs:     jobs,
		txs:      txs,
		hub:      hub,
	}
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}/status.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value(contextkeys.UserID).(string)

	var req domain.UpdateOrderStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	tx, err := h.billing.UpdateOrderStatus(r.Context(), adminID, chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, tx)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobCounts := map[string]int{}
	for _, s := range []domain.JobStatus{
		domain.JobPending, domain.JobRunning, domain.JobCompleted,
		domain.JobFailed, domain.JobPaused,
	} {
		n, err := h.jobs.CountByStatus(ctx, s)
		if err != nil {
			Error(w, domain.ErrDatabase("failed to count jobs", err))
			return
		}
		jobCounts[string(s)] = n
	}

	txCounts := map[string]int{}
	for _, s := range []domain.TransactionStatus{
		domain.TxPending, domain.TxProofUploaded, domain.TxCompleted,
		domain.TxFailed, domain.TxReview,
	} {
		n, err := h.txs.CountByStatus(ctx, s)
		if err != nil {
			Error(w, domain.ErrDatabase("failed to count transactions", err))
			return
		}
		txCounts[string(s)] = n
	}

	JSON(w, http.StatusOK, map[string]any{
		"jobs":         jobCounts,
		"transactions": txCounts,
		"websocket":    h.hub.Stats(),
	})
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	user, err := h.auth.CreateUser(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetSettings handles GET /api/admin/settings.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// UpdateSettings handles PUT /api/admin/settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	for k, v := range req {
		if err := h.settings.Set(r.Context(), k, v); err != nil {
			Error(w, err)
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
