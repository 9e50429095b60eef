// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package reports

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/cumulus/internal/db"
)

// SliceReport is the API representation of a slice summary: owner identity,
// aggregate VM resource footprint, and status.
type SliceReport struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	CreatedDate  string `json:"created_date,omitempty"`
	Owner        string `json:"owner,omitempty"`
	VMCount      int64  `json:"vm_count"`
	AssignedVCPU int64  `json:"assigned_vcpu"`
	AssignedRAM  int64  `json:"assigned_ram"`
	AssignedDisk int64  `json:"assigned_disk"`
}

// createdDateFormat renders slice creation timestamps as "dd/MM/yyyy HH:mm:ss".
const createdDateFormat = "02/01/2006 15:04:05"

func formatCreatedAt(createdAt *time.Time) string {
	if createdAt == nil {
		return ""
	}
	return createdAt.Format(createdDateFormat)
}

var sliceQuery = sqlext.SimplifyWhitespace(`
	SELECT s.id, s.name, s.description, s.status, s.created_at
	  FROM slices s
	 ORDER BY s.id
`)

var sliceInZoneQuery = sqlext.SimplifyWhitespace(`
	SELECT s.id, s.name, s.description, s.status, s.created_at
	  FROM slices s
	  JOIN slice_availability_zones saz ON saz.slice_id = s.id
	 WHERE saz.zone_id = $1
	 ORDER BY s.id
`)

var sliceOwnerQuery = sqlext.SimplifyWhitespace(`
	SELECT so.slice_id, t.name
	  FROM slice_ownerships so
	  JOIN tenants t ON t.id = so.tenant_id
`)

var sliceVMQuery = sqlext.SimplifyWhitespace(`
	SELECT vm.slice_id, f.vcpu, f.ram, f.disk
	  FROM virtual_machines vm
	  JOIN flavors f ON f.id = vm.flavor_id
`)

// GetSlices computes a SliceReport for every slice, or only for the slices
// associated with the given zone. This is the walked form: it reads the
// slice, ownership and VM relations separately and folds VM footprints into
// running accumulators.
func GetSlices(dbi db.Interface, zoneID *int64) ([]SliceReport, error) {
	result := []SliceReport{}
	indexOf := make(map[int64]int)

	queryStr := sliceQuery
	var args []any
	if zoneID != nil {
		queryStr = sliceInZoneQuery
		args = []any{*zoneID}
	}
	err := sqlext.ForeachRow(dbi, queryStr, args, func(rows *sql.Rows) error {
		var (
			report    SliceReport
			createdAt *time.Time
		)
		err := rows.Scan(&report.ID, &report.Name, &report.Description, &report.Status, &createdAt)
		if err != nil {
			return err
		}
		report.CreatedDate = formatCreatedAt(createdAt)
		indexOf[report.ID] = len(result)
		result = append(result, report)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while listing slices: %w", err)
	}

	// the primary key on slice_ownerships guarantees at most one owner per
	// slice; an absent owner is not an error
	err = sqlext.ForeachRow(dbi, sliceOwnerQuery, nil, func(rows *sql.Rows) error {
		var (
			sliceID int64
			owner   string
		)
		err := rows.Scan(&sliceID, &owner)
		if err != nil {
			return err
		}
		if idx, exists := indexOf[sliceID]; exists {
			result[idx].Owner = owner
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while resolving slice owners: %w", err)
	}

	err = sqlext.ForeachRow(dbi, sliceVMQuery, nil, func(rows *sql.Rows) error {
		var (
			sliceID int64
			vcpu    int64
			ram     int64
			disk    int64
		)
		err := rows.Scan(&sliceID, &vcpu, &ram, &disk)
		if err != nil {
			return err
		}
		idx, exists := indexOf[sliceID]
		if !exists {
			// VMs in other zones' slices when filtering by zone
			return nil
		}
		report := &result[idx]
		report.VMCount++
		report.AssignedVCPU += vcpu
		report.AssignedRAM += ram
		report.AssignedDisk += disk
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while folding VM footprints into slices: %w", err)
	}

	return result, nil
}

// sliceBulkQuery is the single-join form of the slice summary. It must
// produce the same vm_count/assigned_* figures as the walked form in
// GetSlices; TestSliceBulkEquivalence checks that.
var sliceBulkQuery = sqlext.SimplifyWhitespace(`
	SELECT s.id, s.name, s.description, s.status, s.created_at, t.name,
	       COUNT(vm.id), COALESCE(SUM(f.vcpu), 0), COALESCE(SUM(f.ram), 0), COALESCE(SUM(f.disk), 0)
	  FROM slices s
	  LEFT OUTER JOIN slice_ownerships so ON so.slice_id = s.id
	  LEFT OUTER JOIN tenants t ON t.id = so.tenant_id
	  LEFT OUTER JOIN virtual_machines vm ON vm.slice_id = s.id
	  LEFT OUTER JOIN flavors f ON f.id = vm.flavor_id
	 GROUP BY s.id, t.name
	 ORDER BY s.id
`)

// GetSlicesBulk is the bulk form of GetSlices: one join query across slices,
// ownerships, VMs and flavors, grouped by slice. It avoids the per-relation
// walk when only the summary fields are needed.
func GetSlicesBulk(dbi db.Interface) ([]SliceReport, error) {
	result := []SliceReport{}
	err := sqlext.ForeachRow(dbi, sliceBulkQuery, nil, func(rows *sql.Rows) error {
		var (
			report    SliceReport
			createdAt *time.Time
			owner     *string
		)
		err := rows.Scan(&report.ID, &report.Name, &report.Description, &report.Status, &createdAt, &owner,
			&report.VMCount, &report.AssignedVCPU, &report.AssignedRAM, &report.AssignedDisk)
		if err != nil {
			return err
		}
		report.CreatedDate = formatCreatedAt(createdAt)
		if owner != nil {
			report.Owner = *owner
		}
		result = append(result, report)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while aggregating slice summaries: %w", err)
	}
	return result, nil
}
