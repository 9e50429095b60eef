// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package datamodel

import (
	"github.com/sapcc/cumulus/internal/db"
)

// ResourceRequest describes a prospective allocation that a tenant wants to
// check against its remaining headroom.
type ResourceRequest struct {
	CPU    int64 `json:"cpu"`
	RAM    int64 `json:"ram"`
	Disk   int64 `json:"disk"`
	Slices int64 `json:"slices"`
}

// CheckAvailability returns the names of all resources whose remaining
// headroom (limit minus usage) does not cover the request. An empty result
// means that the request fits.
//
// An overcommitted resource has negative headroom, so it shows up as
// insufficient even for a zero request. This check is advisory only: it does
// not reserve anything, and a subsequent usage report may still push the
// tenant over its limits.
func CheckAvailability(quota db.ResourceQuota, req ResourceRequest) (insufficient []string) {
	for _, res := range []struct {
		Name      string
		Requested int64
		Used      int64
		Limit     int64
	}{
		{"cpu", req.CPU, quota.UsedCPU, quota.CPU},
		{"ram", req.RAM, quota.UsedRAM, quota.RAM},
		{"disk", req.Disk, quota.UsedDisk, quota.Disk},
		{"slices", req.Slices, quota.UsedSlices, quota.Slices},
	} {
		if res.Requested > res.Limit-res.Used {
			insufficient = append(insufficient, res.Name)
		}
	}
	return
}
