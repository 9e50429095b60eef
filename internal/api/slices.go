// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"strconv"

	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/cumulus/internal/reports"
)

// ListSlices handles GET /v1/slices. Without a filter, the summaries come out
// of the bulk join query; with ?zone=, out of the per-zone walked projection.
// Both forms yield the same numbers for the same slice.
func (p *v1Provider) ListSlices(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/v1/slices")

	var (
		result []reports.SliceReport
		err    error
	)
	if zoneStr := r.URL.Query().Get("zone"); zoneStr != "" {
		zoneID, parseErr := strconv.ParseInt(zoneStr, 10, 64)
		if parseErr != nil {
			http.Error(w, "zone filter is not numeric", http.StatusBadRequest)
			return
		}
		result, err = reports.GetSlices(p.DB, &zoneID)
	} else {
		result, err = reports.GetSlicesBulk(p.DB)
	}
	if respondwith.ErrorText(w, err) {
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]any{"slices": result})
}
