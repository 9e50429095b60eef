// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"database/sql"
	"errors"

	"github.com/sapcc/cumulus/internal/db"
)

// TenantDirectory answers identity lookups for tenants. The production
// implementation reads the mirrored `tenants` table; tests can substitute
// their own. It is passed into each component by construction instead of
// living in a package-level variable.
type TenantDirectory interface {
	// FindTenant returns nil (and no error) if no such tenant exists.
	FindTenant(dbi db.Interface, uuid string) (*db.Tenant, error)
	TenantExists(dbi db.Interface, uuid string) (bool, error)
}

// SQLTenantDirectory implements TenantDirectory on the `tenants` table.
type SQLTenantDirectory struct{}

// FindTenant implements the TenantDirectory interface.
func (SQLTenantDirectory) FindTenant(dbi db.Interface, uuid string) (*db.Tenant, error) {
	var tenant db.Tenant
	err := dbi.SelectOne(&tenant, `SELECT * FROM tenants WHERE uuid = $1`, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// TenantExists implements the TenantDirectory interface.
func (d SQLTenantDirectory) TenantExists(dbi db.Interface, uuid string) (bool, error) {
	tenant, err := d.FindTenant(dbi, uuid)
	return tenant != nil, err
}
