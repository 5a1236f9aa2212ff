package handler

import (
	"net/http"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/repository"
)

// PackagesHandler serves the public plan catalog.
type PackagesHandler struct {
	packages *repository.PackageRepository
}

// NewPackagesHandler creates a new PackagesHandler.
func NewPackagesHandler(packages *repository.PackageRepository) *PackagesHandler {
	return &PackagesHandler{packages: packages}
}

// List handles GET /api/packages.
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.packages.ListActive(r.Context())
	if err != nil {
		Error(w, domain.ErrDatabase("failed to list packages", err))
		return
	}
	JSON(w, http.StatusOK, map[string]any{"packages": pkgs})
}

// ListGateways handles GET /api/payment-gateways.
func (h *PackagesHandler) ListGateways(w http.ResponseWriter, r *http.Request) {
	gws, err := h.packages.ListGateways(r.Context())
	if err != nil {
		Error(w, domain.ErrDatabase("failed to list payment gateways", err))
		return
	}
	JSON(w, http.StatusOK, map[string]any{"gateways": gws})
}
