package handler

import (
	"encoding/json"
	"net/http"

	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/model"
	"github.com/propsignal/tenant-assistant/pkg/logger"
)

// DirectoryHandler handles tenant and contractor registration.
type DirectoryHandler struct {
	dir    *directory.Directory
	logger *logger.Logger
}

// NewDirectoryHandler creates a new directory handler.
func NewDirectoryHandler(dir *directory.Directory, log *logger.Logger) *DirectoryHandler {
	return &DirectoryHandler{dir: dir, logger: log}
}

// RegisterTenant handles POST /api/v1/tenants
func (h *DirectoryHandler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.dir.RegisterTenant(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, tenant)
}

// ListTenants handles GET /api/v1/tenants
func (h *DirectoryHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tenants": h.dir.ListTenants()})
}

// RegisterContractor handles POST /api/v1/contractors
func (h *DirectoryHandler) RegisterContractor(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contractor, err := h.dir.RegisterContractor(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, contractor)
}

// ListContractors handles GET /api/v1/contractors
func (h *DirectoryHandler) ListContractors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"contractors": h.dir.ListContractors()})
}
