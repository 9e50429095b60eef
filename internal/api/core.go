// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-gorp/gorp/v3"
	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/cumulus/internal/core"
	"github.com/sapcc/cumulus/internal/db"
)

// VersionData is used by version advertisement handlers.
type VersionData struct {
	Status string            `json:"status"`
	ID     string            `json:"id"`
	Links  []VersionLinkData `json:"links"`
}

// VersionLinkData is used by version advertisement handlers, as part of the
// VersionData struct.
type VersionLinkData struct {
	URL      string `json:"href"`
	Relation string `json:"rel"`
	Type     string `json:"type,omitempty"`
}

type v1Provider struct {
	Config      core.Configuration
	DB          *gorp.DbMap
	Directory   core.TenantDirectory
	VersionData VersionData
}

// NewV1API creates an httpapi.API that serves the Cumulus v1 API.
func NewV1API(cfg core.Configuration, dbm *gorp.DbMap, directory core.TenantDirectory) httpapi.API {
	p := &v1Provider{Config: cfg, DB: dbm, Directory: directory}
	p.VersionData = VersionData{
		Status: "CURRENT",
		ID:     "v1",
		Links: []VersionLinkData{
			{
				Relation: "self",
				URL:      "/v1/",
			},
			{
				Relation: "describedby",
				URL:      "https://github.com/sapcc/cumulus/blob/master/docs/api-v1-specification.md",
				Type:     "text/html",
			},
		},
	}
	return p
}

// AddTo implements the httpapi.API interface.
func (p *v1Provider) AddTo(r *mux.Router) {
	r.Methods("HEAD", "GET").Path("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.IdentifyEndpoint(r, "/")
		httpapi.SkipRequestLog(r)
		respondwith.JSON(w, 300, map[string]any{"versions": []VersionData{p.VersionData}})
	})

	r.Methods("GET").Path("/v1/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.IdentifyEndpoint(r, "/v1/")
		httpapi.SkipRequestLog(r)
		respondwith.JSON(w, 200, map[string]any{"version": p.VersionData})
	})

	r.Methods("GET").Path("/v1/tenants/{tenant_id}/quota").HandlerFunc(p.GetQuota)
	r.Methods("PUT").Path("/v1/tenants/{tenant_id}/quota").HandlerFunc(p.PutQuota)
	r.Methods("POST").Path("/v1/tenants/{tenant_id}/quota/init").HandlerFunc(p.InitQuota)
	r.Methods("PUT").Path("/v1/tenants/{tenant_id}/quota/usage").HandlerFunc(p.PutQuotaUsage)
	r.Methods("POST").Path("/v1/tenants/{tenant_id}/quota/check").HandlerFunc(p.CheckQuota)
	r.Methods("GET").Path("/v1/quotas").HandlerFunc(p.ListQuotas)

	r.Methods("GET").Path("/v1/zones").HandlerFunc(p.ListZones)
	r.Methods("GET").Path("/v1/zones/{zone_id}").HandlerFunc(p.GetZone)
	r.Methods("GET").Path("/v1/zones/{zone_id}/servers").HandlerFunc(p.ListZoneServers)

	r.Methods("GET").Path("/v1/slices").HandlerFunc(p.ListSlices)
}

// RequireJSON will parse the request body into the given data structure, or
// write an error response if that fails.
func RequireJSON(w http.ResponseWriter, r *http.Request, data any) bool {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil {
		http.Error(w, "request body is not valid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// FindTenantFromRequest loads the db.Tenant referenced by the :tenant_id path
// parameter. Any errors will be written into the response immediately and cause
// a nil return value.
func (p *v1Provider) FindTenantFromRequest(w http.ResponseWriter, r *http.Request) *db.Tenant {
	tenantUUID := mux.Vars(r)["tenant_id"]
	if tenantUUID == "" {
		http.Error(w, "tenant ID missing", http.StatusBadRequest)
		return nil
	}

	tenant, err := p.Directory.FindTenant(p.DB, tenantUUID)
	if respondwith.ErrorText(w, err) {
		return nil
	}
	if tenant == nil {
		http.Error(w, "no such tenant", http.StatusNotFound)
		return nil
	}
	return tenant
}

// ZoneIDFromRequest parses the :zone_id path parameter. Any errors will be
// written into the response immediately and cause a false return value.
func ZoneIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	zoneID, err := strconv.ParseInt(mux.Vars(r)["zone_id"], 10, 64)
	if err != nil {
		http.Error(w, "zone ID is not numeric", http.StatusBadRequest)
		return 0, false
	}
	return zoneID, true
}
