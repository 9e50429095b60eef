// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/cumulus/internal/reports"
)

// ListZones handles GET /v1/zones.
func (p *v1Provider) ListZones(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/zones")
	zones, err := reports.GetZones(p.DB)
	if respondwith.ErrorText(w, err) {
		return
	}
	if zones == nil {
		zones = []reports.ZoneSummary{}
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"zones": zones})
}

// GetZone handles GET /v1/zones/:zone_id.
func (p *v1Provider) GetZone(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/zones/:id")
	zoneID, ok := ZoneIDFromRequest(w, r)
	if !ok {
		return
	}

	zone, err := reports.GetZoneDetail(p.DB, zoneID)
	if respondwith.ErrorText(w, err) {
		return
	}
	if zone == nil {
		http.Error(w, "no such availability zone", http.StatusNotFound)
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"zone": zone})
}

// ListZoneServers handles GET /v1/zones/:zone_id/servers.
func (p *v1Provider) ListZoneServers(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/zones/:id/servers")
	zoneID, ok := ZoneIDFromRequest(w, r)
	if !ok {
		return
	}

	servers, err := reports.GetZoneServers(p.DB, zoneID)
	if respondwith.ErrorText(w, err) {
		return
	}
	if servers == nil {
		http.Error(w, "no such availability zone", http.StatusNotFound)
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"servers": servers})
}
