// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/cumulus/internal/datamodel"
	"github.com/sapcc/cumulus/internal/reports"
)

// GetQuota handles GET /v1/tenants/:tenant_id/quota.
func (p *v1Provider) GetQuota(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/tenants/:id/quota")
	tenant := p.FindTenantFromRequest(w, r)
	if tenant == nil {
		return
	}

	quota, err := datamodel.GetQuota(p.DB, tenant.ID)
	if respondwith.ErrorText(w, err) {
		return
	}
	if quota == nil {
		http.Error(w, "tenant has no quota record (use POST .../quota/init to create one)", http.StatusNotFound)
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"quota": reports.BuildQuotaReport(*tenant, *quota)})
}

// ListQuotas handles GET /v1/quotas.
func (p *v1Provider) ListQuotas(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/quotas")
	quotas, err := reports.GetQuotas(p.DB)
	if respondwith.ErrorText(w, err) {
		return
	}
	if quotas == nil {
		quotas = []reports.QuotaReport{}
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"quotas": quotas})
}

// quotaUpdateRequest is the request body for PUT .../quota and
// POST .../quota/init. All fields are optional at the parsing level; each
// handler checks its own requirements.
type quotaUpdateRequest struct {
	CPU        *int64 `json:"cpu"`
	RAM        *int64 `json:"ram"`
	Disk       *int64 `json:"disk"`
	Slices     *int64 `json:"slices"`
	UsedCPU    *int64 `json:"used_cpu"`
	UsedRAM    *int64 `json:"used_ram"`
	UsedDisk   *int64 `json:"used_disk"`
	UsedSlices *int64 `json:"used_slices"`
}

func (q quotaUpdateRequest) missingLimits() (missing []string) {
	for _, field := range []struct {
		Name  string
		Value *int64
	}{
		{"cpu", q.CPU},
		{"ram", q.RAM},
		{"disk", q.Disk},
		{"slices", q.Slices},
	} {
		if field.Value == nil {
			missing = append(missing, field.Name)
		}
	}
	return
}

func (q quotaUpdateRequest) negativeFields() (negative []string) {
	for _, field := range []struct {
		Name  string
		Value *int64
	}{
		{"cpu", q.CPU},
		{"ram", q.RAM},
		{"disk", q.Disk},
		{"slices", q.Slices},
		{"used_cpu", q.UsedCPU},
		{"used_ram", q.UsedRAM},
		{"used_disk", q.UsedDisk},
		{"used_slices", q.UsedSlices},
	} {
		if field.Value != nil && *field.Value < 0 {
			negative = append(negative, field.Name)
		}
	}
	return
}

// PutQuota handles PUT /v1/tenants/:tenant_id/quota.
func (p *v1Provider) PutQuota(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/tenants/:id/quota")
	tenant := p.FindTenantFromRequest(w, r)
	if tenant == nil {
		return
	}
	var req quotaUpdateRequest
	if !RequireJSON(w, r, &req) {
		return
	}
	if missing := req.missingLimits(); len(missing) > 0 {
		http.Error(w, "missing required fields: "+strings.Join(missing, ", "), http.StatusBadRequest)
		return
	}
	if negative := req.negativeFields(); len(negative) > 0 {
		http.Error(w, "fields may not be negative: "+strings.Join(negative, ", "), http.StatusBadRequest)
		return
	}

	tx, err := p.DB.Begin()
	if respondwith.ErrorText(w, err) {
		return
	}
	defer sqlext.RollbackUnlessCommitted(tx)

	quota, err := datamodel.SetQuotaLimits(tx, *tenant, datamodel.LimitUpdate{
		CPU:        *req.CPU,
		RAM:        *req.RAM,
		Disk:       *req.Disk,
		Slices:     *req.Slices,
		UsedCPU:    req.UsedCPU,
		UsedRAM:    req.UsedRAM,
		UsedDisk:   req.UsedDisk,
		UsedSlices: req.UsedSlices,
	})
	if respondwith.ErrorText(w, err) {
		return
	}
	if respondwith.ErrorText(w, tx.Commit()) {
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"quota": reports.BuildQuotaReport(*tenant, quota)})
}

// InitQuota handles POST /v1/tenants/:tenant_id/quota/init.
func (p *v1Provider) InitQuota(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/tenants/:id/quota/init")
	tenant := p.FindTenantFromRequest(w, r)
	if tenant == nil {
		return
	}

	// the request body is optional; without one, all defaults apply
	var req quotaUpdateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "request body is not valid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if negative := req.negativeFields(); len(negative) > 0 {
		http.Error(w, "fields may not be negative: "+strings.Join(negative, ", "), http.StatusBadRequest)
		return
	}

	tx, err := p.DB.Begin()
	if respondwith.ErrorText(w, err) {
		return
	}
	defer sqlext.RollbackUnlessCommitted(tx)

	quota, err := datamodel.InitializeQuota(tx, *tenant, p.Config.Quota, datamodel.LimitOverrides{
		CPU:    req.CPU,
		RAM:    req.RAM,
		Disk:   req.Disk,
		Slices: req.Slices,
	})
	if errors.Is(err, datamodel.ErrQuotaRecordExists) {
		http.Error(w, "tenant already has a quota record", http.StatusConflict)
		return
	}
	if respondwith.ErrorText(w, err) {
		return
	}
	if respondwith.ErrorText(w, tx.Commit()) {
		return
	}
	respondwith.JSON(w, http.StatusCreated, map[string]any{"quota": reports.BuildQuotaReport(*tenant, quota)})
}

// PutQuotaUsage handles PUT /v1/tenants/:tenant_id/quota/usage.
func (p *v1Provider) PutQuotaUsage(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/tenants/:id/quota/usage")
	tenant := p.FindTenantFromRequest(w, r)
	if tenant == nil {
		return
	}
	var req quotaUpdateRequest
	if !RequireJSON(w, r, &req) {
		return
	}
	update := datamodel.UsageUpdate{
		UsedCPU:    req.UsedCPU,
		UsedRAM:    req.UsedRAM,
		UsedDisk:   req.UsedDisk,
		UsedSlices: req.UsedSlices,
	}
	if update.IsEmpty() {
		http.Error(w, "request body contains no recognized usage field", http.StatusBadRequest)
		return
	}
	if negative := req.negativeFields(); len(negative) > 0 {
		http.Error(w, "fields may not be negative: "+strings.Join(negative, ", "), http.StatusBadRequest)
		return
	}

	tx, err := p.DB.Begin()
	if respondwith.ErrorText(w, err) {
		return
	}
	defer sqlext.RollbackUnlessCommitted(tx)

	quota, err := datamodel.ApplyUsageReport(tx, *tenant, update)
	if respondwith.ErrorText(w, err) {
		return
	}
	if quota == nil {
		http.Error(w, "tenant has no quota record (use POST .../quota/init to create one)", http.StatusNotFound)
		return
	}
	if respondwith.ErrorText(w, tx.Commit()) {
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"quota": reports.BuildQuotaReport(*tenant, *quota)})
}

// resourceVector appears in the availability check response, once per
// perspective (requested, assigned, used, available).
type resourceVector struct {
	CPU    int64 `json:"cpu"`
	RAM    int64 `json:"ram"`
	Disk   int64 `json:"disk"`
	Slices int64 `json:"slices"`
}

// availabilityResponse is the response body for POST .../quota/check.
type availabilityResponse struct {
	OK                    bool           `json:"available"`
	InsufficientResources []string       `json:"insufficient_resources"`
	Requested             resourceVector `json:"requested"`
	Assigned              resourceVector `json:"assigned"`
	Used                  resourceVector `json:"used"`
	Available             resourceVector `json:"available_resources"`
}

// CheckQuota handles POST /v1/tenants/:tenant_id/quota/check.
//
// The check is advisory: it reads the current quota record and reports whether
// the requested allocation would fit, without reserving anything.
func (p *v1Provider) CheckQuota(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/tenants/:id/quota/check")
	tenant := p.FindTenantFromRequest(w, r)
	if tenant == nil {
		return
	}
	var req datamodel.ResourceRequest
	if !RequireJSON(w, r, &req) {
		return
	}

	quota, err := datamodel.GetQuota(p.DB, tenant.ID)
	if respondwith.ErrorText(w, err) {
		return
	}
	if quota == nil {
		http.Error(w, "tenant has no quota record (use POST .../quota/init to create one)", http.StatusNotFound)
		return
	}

	insufficient := datamodel.CheckAvailability(*quota, req)
	if insufficient == nil {
		insufficient = []string{}
	}
	respondwith.JSON(w, http.StatusOK, availabilityResponse{
		OK:                    len(insufficient) == 0,
		InsufficientResources: insufficient,
		Requested:             resourceVector{req.CPU, req.RAM, req.Disk, req.Slices},
		Assigned:              resourceVector{quota.CPU, quota.RAM, quota.Disk, quota.Slices},
		Used:                  resourceVector{quota.UsedCPU, quota.UsedRAM, quota.UsedDisk, quota.UsedSlices},
		Available: resourceVector{
			CPU:    quota.CPU - quota.UsedCPU,
			RAM:    quota.RAM - quota.UsedRAM,
			Disk:   quota.Disk - quota.UsedDisk,
			Slices: quota.Slices - quota.UsedSlices,
		},
	})
}
