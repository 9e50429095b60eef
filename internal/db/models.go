// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"time"

	"github.com/go-gorp/gorp/v3"
)

// Tenant contains a record from the `tenants` table.
//
// Tenant lifecycle (creation, authentication, profile data) is owned by an
// external directory service; this table only mirrors the identity that the
// capacity graph and the quota ledger need to join against.
type Tenant struct {
	ID   int64  `db:"id"`
	UUID string `db:"uuid"`
	Name string `db:"name"`
}

// ResourceQuota contains a record from the `resource_quotas` table.
// There is at most one record per tenant.
//
// The four limit fields are entitlements, the four used fields are consumption
// counters reported by consumer services. Usage above the limit is accepted
// (overcommit), so none of the code may assume used <= limit.
type ResourceQuota struct {
	ID         int64 `db:"id"`
	TenantID   int64 `db:"tenant_id"`
	CPU        int64 `db:"cpu"`
	RAM        int64 `db:"ram"`
	Disk       int64 `db:"disk"`
	Slices     int64 `db:"slices"`
	UsedCPU    int64 `db:"used_cpu"`
	UsedRAM    int64 `db:"used_ram"`
	UsedDisk   int64 `db:"used_disk"`
	UsedSlices int64 `db:"used_slices"`
}

// AvailabilityZone contains a record from the `availability_zones` table.
type AvailabilityZone struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

// PhysicalServer contains a record from the `physical_servers` table.
//
// The used_* counters are maintained by the external provisioning agent, not
// by this service. Zone-level usage is always recomputed from the VM->flavor
// graph instead; these counters only appear in per-server breakdowns and in
// drift detection.
type PhysicalServer struct {
	ID        int64  `db:"id"`
	ZoneID    int64  `db:"zone_id"`
	Name      string `db:"name"`
	IP        string `db:"ip"`
	Status    string `db:"status"`
	TotalVCPU int64  `db:"total_vcpu"`
	TotalRAM  int64  `db:"total_ram"`
	TotalDisk int64  `db:"total_disk"`
	UsedVCPU  int64  `db:"used_vcpu"`
	UsedRAM   int64  `db:"used_ram"`
	UsedDisk  int64  `db:"used_disk"`
}

// Flavor contains a record from the `flavors` table.
// TenantID is nil for public flavors and set for private ones.
//
// A flavor that is referenced by any virtual machine is immutable; the schema
// enforces the deletion half of that via ON DELETE RESTRICT.
type Flavor struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	VCPU     int64  `db:"vcpu"`
	RAM      int64  `db:"ram"`
	Disk     int64  `db:"disk"`
	TenantID *int64 `db:"tenant_id"`
}

// Slice contains a record from the `slices` table.
type Slice struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	Status      string     `db:"status"`
	CreatedAt   *time.Time `db:"created_at"` // pointer type to allow for NULL value
}

// SliceOwnership contains a record from the `slice_ownerships` table.
// Ownership is a separate relation rather than a foreign key on `slices`;
// the primary key on slice_id guarantees at most one owner per slice.
type SliceOwnership struct {
	SliceID  int64 `db:"slice_id"`
	TenantID int64 `db:"tenant_id"`
}

// SliceAvailabilityZone contains a record from the `slice_availability_zones`
// table (the many-to-many membership of slices in zones).
type SliceAvailabilityZone struct {
	SliceID int64 `db:"slice_id"`
	ZoneID  int64 `db:"zone_id"`
}

// VirtualMachine contains a record from the `virtual_machines` table.
//
// A VM has no resource fields of its own: its footprint is always derived from
// the referenced flavor.
type VirtualMachine struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Status   string `db:"status"`
	FlavorID int64  `db:"flavor_id"`
	SliceID  int64  `db:"slice_id"`
	ServerID int64  `db:"server_id"`
}

// initGorp is used by InitORM() to setup the ORM part of the database connection.
func initGorp(db *gorp.DbMap) {
	db.AddTableWithName(Tenant{}, "tenants").SetKeys(true, "id")
	db.AddTableWithName(ResourceQuota{}, "resource_quotas").SetKeys(true, "id")
	db.AddTableWithName(AvailabilityZone{}, "availability_zones").SetKeys(true, "id")
	db.AddTableWithName(PhysicalServer{}, "physical_servers").SetKeys(true, "id")
	db.AddTableWithName(Flavor{}, "flavors").SetKeys(true, "id")
	db.AddTableWithName(Slice{}, "slices").SetKeys(true, "id")
	db.AddTableWithName(SliceOwnership{}, "slice_ownerships").SetKeys(false, "slice_id")
	db.AddTableWithName(SliceAvailabilityZone{}, "slice_availability_zones").SetKeys(false, "slice_id", "zone_id")
	db.AddTableWithName(VirtualMachine{}, "virtual_machines").SetKeys(true, "id")
}
