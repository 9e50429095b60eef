// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package datamodel

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/cumulus/internal/core"
	"github.com/sapcc/cumulus/internal/db"
)

// ErrQuotaRecordExists is returned by InitializeQuota when the tenant already
// has a quota record.
var ErrQuotaRecordExists = errors.New("quota record already initialized")

// getQuotaForUpdate loads the tenant's quota record with a row lock, so that
// concurrent mutations on the same tenant serialize on the database. Returns
// nil without error if the tenant has no quota record yet.
func getQuotaForUpdate(dbi db.Interface, tenantID int64) (*db.ResourceQuota, error) {
	var quota db.ResourceQuota
	err := dbi.SelectOne(&quota,
		`SELECT * FROM resource_quotas WHERE tenant_id = $1 FOR UPDATE`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

// GetQuota loads the tenant's quota record without locking it. Returns nil
// without error if the tenant has no quota record yet.
func GetQuota(dbi db.Interface, tenantID int64) (*db.ResourceQuota, error) {
	var quota db.ResourceQuota
	err := dbi.SelectOne(&quota,
		`SELECT * FROM resource_quotas WHERE tenant_id = $1`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

// LimitUpdate is the payload for SetQuotaLimits. All four limits must be
// given. The usage fields are optional; absent ones leave the respective
// counter untouched.
type LimitUpdate struct {
	CPU        int64
	RAM        int64
	Disk       int64
	Slices     int64
	UsedCPU    *int64
	UsedRAM    *int64
	UsedDisk   *int64
	UsedSlices *int64
}

// SetQuotaLimits replaces the tenant's entitlements, creating the quota
// record if it does not exist yet. The caller must supply a transaction; the
// record is locked for the duration of the update.
func SetQuotaLimits(tx db.Interface, tenant db.Tenant, update LimitUpdate) (db.ResourceQuota, error) {
	quota, err := getQuotaForUpdate(tx, tenant.ID)
	if err != nil {
		return db.ResourceQuota{}, err
	}
	created := false
	if quota == nil {
		quota = &db.ResourceQuota{TenantID: tenant.ID}
		created = true
	}

	quota.CPU = update.CPU
	quota.RAM = update.RAM
	quota.Disk = update.Disk
	quota.Slices = update.Slices
	if update.UsedCPU != nil {
		quota.UsedCPU = *update.UsedCPU
	}
	if update.UsedRAM != nil {
		quota.UsedRAM = *update.UsedRAM
	}
	if update.UsedDisk != nil {
		quota.UsedDisk = *update.UsedDisk
	}
	if update.UsedSlices != nil {
		quota.UsedSlices = *update.UsedSlices
	}
	warnOnOvercommit(tenant, *quota)

	if created {
		err = tx.Insert(quota)
	} else {
		_, err = tx.Update(quota)
	}
	if err != nil {
		return db.ResourceQuota{}, fmt.Errorf("while writing quota record for tenant %s: %w", tenant.UUID, err)
	}
	return *quota, nil
}

// UsageUpdate is the payload for ApplyUsageReport. Each field patches its
// counter only when present.
type UsageUpdate struct {
	UsedCPU    *int64
	UsedRAM    *int64
	UsedDisk   *int64
	UsedSlices *int64
}

// IsEmpty reports whether the update carries no recognized field at all.
func (u UsageUpdate) IsEmpty() bool {
	return u.UsedCPU == nil && u.UsedRAM == nil && u.UsedDisk == nil && u.UsedSlices == nil
}

// ApplyUsageReport patches the tenant's usage counters with the values present
// in the update. Unlike SetQuotaLimits, this never creates a record: a nil
// return value without error means that the tenant has no quota record.
func ApplyUsageReport(tx db.Interface, tenant db.Tenant, update UsageUpdate) (*db.ResourceQuota, error) {
	quota, err := getQuotaForUpdate(tx, tenant.ID)
	if err != nil || quota == nil {
		return nil, err
	}

	if update.UsedCPU != nil {
		quota.UsedCPU = *update.UsedCPU
	}
	if update.UsedRAM != nil {
		quota.UsedRAM = *update.UsedRAM
	}
	if update.UsedDisk != nil {
		quota.UsedDisk = *update.UsedDisk
	}
	if update.UsedSlices != nil {
		quota.UsedSlices = *update.UsedSlices
	}
	warnOnOvercommit(tenant, *quota)

	_, err = tx.Update(quota)
	if err != nil {
		return nil, fmt.Errorf("while writing usage counters for tenant %s: %w", tenant.UUID, err)
	}
	return quota, nil
}

// LimitOverrides is the optional payload for InitializeQuota. Absent fields
// fall back to the configured defaults.
type LimitOverrides struct {
	CPU    *int64
	RAM    *int64
	Disk   *int64
	Slices *int64
}

// InitializeQuota creates the tenant's quota record with default
// entitlements, applying any explicit overrides. The defaults must be
// complete, i.e. QuotaConfiguration.ApplyDefaults must have run. Returns
// ErrQuotaRecordExists if the tenant already has a record.
func InitializeQuota(tx db.Interface, tenant db.Tenant, defaults core.QuotaConfiguration, overrides LimitOverrides) (db.ResourceQuota, error) {
	existing, err := getQuotaForUpdate(tx, tenant.ID)
	if err != nil {
		return db.ResourceQuota{}, err
	}
	if existing != nil {
		return db.ResourceQuota{}, ErrQuotaRecordExists
	}

	quota := db.ResourceQuota{
		TenantID: tenant.ID,
		CPU:      *defaults.DefaultCPU,
		RAM:      *defaults.DefaultRAM,
		Disk:     *defaults.DefaultDisk,
		Slices:   *defaults.DefaultSlices,
	}
	if overrides.CPU != nil {
		quota.CPU = *overrides.CPU
	}
	if overrides.RAM != nil {
		quota.RAM = *overrides.RAM
	}
	if overrides.Disk != nil {
		quota.Disk = *overrides.Disk
	}
	if overrides.Slices != nil {
		quota.Slices = *overrides.Slices
	}

	err = tx.Insert(&quota)
	if err != nil {
		return db.ResourceQuota{}, fmt.Errorf("while creating quota record for tenant %s: %w", tenant.UUID, err)
	}
	return quota, nil
}

func warnOnOvercommit(tenant db.Tenant, quota db.ResourceQuota) {
	for _, res := range []struct {
		Name  string
		Used  int64
		Limit int64
	}{
		{"cpu", quota.UsedCPU, quota.CPU},
		{"ram", quota.UsedRAM, quota.RAM},
		{"disk", quota.UsedDisk, quota.Disk},
		{"slices", quota.UsedSlices, quota.Slices},
	} {
		if res.Used > res.Limit {
			logg.Info("tenant %s is overcommitted on %s: usage %d exceeds limit %d",
				tenant.UUID, res.Name, res.Used, res.Limit)
		}
	}
}
