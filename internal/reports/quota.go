// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package reports

import (
	"database/sql"
	"fmt"

	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/cumulus/internal/db"
)

// ResourceReport is the part of a QuotaReport that describes a single
// resource dimension.
type ResourceReport struct {
	Quota        int64 `json:"quota"`
	Usage        int64 `json:"usage"`
	UsagePercent int64 `json:"usage_percent"`
}

// QuotaReport is the API representation of a tenant's resource quota record.
type QuotaReport struct {
	TenantUUID string         `json:"tenant_id"`
	TenantName string         `json:"tenant_name"`
	CPU        ResourceReport `json:"cpu"`
	RAM        ResourceReport `json:"ram"`
	Disk       ResourceReport `json:"disk"`
	Slices     ResourceReport `json:"slices"`
}

// UsagePercent computes the usage percentage that is reported for a single
// resource dimension. The division is guarded: a zero (or negative) limit
// always reports 0, regardless of usage.
func UsagePercent(usage, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return usage * 100 / limit
}

func makeResourceReport(usage, limit int64) ResourceReport {
	return ResourceReport{
		Quota:        limit,
		Usage:        usage,
		UsagePercent: UsagePercent(usage, limit),
	}
}

// BuildQuotaReport converts a quota record into its API representation.
func BuildQuotaReport(tenant db.Tenant, quota db.ResourceQuota) QuotaReport {
	return QuotaReport{
		TenantUUID: tenant.UUID,
		TenantName: tenant.Name,
		CPU:        makeResourceReport(quota.UsedCPU, quota.CPU),
		RAM:        makeResourceReport(quota.UsedRAM, quota.RAM),
		Disk:       makeResourceReport(quota.UsedDisk, quota.Disk),
		Slices:     makeResourceReport(quota.UsedSlices, quota.Slices),
	}
}

var quotaReportQuery = sqlext.SimplifyWhitespace(`
	SELECT t.uuid, t.name, q.cpu, q.ram, q.disk, q.slices,
	       q.used_cpu, q.used_ram, q.used_disk, q.used_slices
	  FROM tenants t
	  JOIN resource_quotas q ON q.tenant_id = t.id
	 ORDER BY t.id
`)

// GetQuotas returns one QuotaReport per tenant that has a quota record, for
// fleet-wide monitoring.
func GetQuotas(dbi db.Interface) ([]QuotaReport, error) {
	var result []QuotaReport
	err := sqlext.ForeachRow(dbi, quotaReportQuery, nil, func(rows *sql.Rows) error {
		var (
			tenant db.Tenant
			quota  db.ResourceQuota
		)
		err := rows.Scan(&tenant.UUID, &tenant.Name,
			&quota.CPU, &quota.RAM, &quota.Disk, &quota.Slices,
			&quota.UsedCPU, &quota.UsedRAM, &quota.UsedDisk, &quota.UsedSlices)
		if err != nil {
			return err
		}
		result = append(result, BuildQuotaReport(tenant, quota))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while collecting quota records: %w", err)
	}
	return result, nil
}
