// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package reports

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/sapcc/cumulus/internal/db"
)

// ZoneSummary is the API representation of an availability zone's aggregated
// capacity.
//
// The used_* figures are recomputed from the VM->flavor graph on every call.
// The physical servers' own used_* counters (maintained by the provisioning
// agent) are deliberately NOT folded in here; they only appear in the
// per-server breakdown of ZoneDetail, where divergence from the recomputed
// sums is flagged.
type ZoneSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalVCPU   int64  `json:"total_vcpu"`
	UsedVCPU    int64  `json:"used_vcpu"`
	TotalRAM    int64  `json:"total_ram"`
	UsedRAM     int64  `json:"used_ram"`
	TotalDisk   int64  `json:"total_disk"`
	UsedDisk    int64  `json:"used_disk"`
	ServerCount int64  `json:"server_count"`
	SliceCount  int64  `json:"slice_count"`
	TotalVMs    int64  `json:"total_vms"`
}

// ServerReport is the per-server breakdown inside a ZoneDetail. The used_*
// fields are the server's own counters; CounterDrift is set when they disagree
// with the sums recomputed from the VMs hosted on that server.
type ServerReport struct {
	ID           int64  `json:"id"`
	Hostname     string `json:"hostname"`
	IP           string `json:"ip"`
	Status       string `json:"status"`
	TotalVCPU    int64  `json:"total_vcpu"`
	UsedVCPU     int64  `json:"used_vcpu"`
	TotalRAM     int64  `json:"total_ram"`
	UsedRAM      int64  `json:"used_ram"`
	TotalDisk    int64  `json:"total_disk"`
	UsedDisk     int64  `json:"used_disk"`
	VMCount      int64  `json:"vm_count"`
	CounterDrift bool   `json:"counter_drift"`
}

// ZoneDetail extends ZoneSummary with per-server and per-slice breakdowns.
type ZoneDetail struct {
	ZoneSummary
	Servers []ServerReport `json:"servers"`
	Slices  []SliceReport  `json:"slices"`
}

var zoneCapacityQuery = sqlext.SimplifyWhitespace(`
	SELECT az.id, az.name, az.description,
	       COUNT(ps.id), COALESCE(SUM(ps.total_vcpu), 0), COALESCE(SUM(ps.total_ram), 0), COALESCE(SUM(ps.total_disk), 0)
	  FROM availability_zones az
	  LEFT OUTER JOIN physical_servers ps ON ps.zone_id = az.id
	 GROUP BY az.id
	 ORDER BY az.id
`)

var zoneSliceCountQuery = sqlext.SimplifyWhitespace(`
	SELECT zone_id, COUNT(*) FROM slice_availability_zones GROUP BY zone_id
`)

// zoneUsageQuery recomputes usage from first principles: every VM hosted on a
// server in the zone contributes its flavor's footprint, regardless of the
// VM's status.
var zoneUsageQuery = sqlext.SimplifyWhitespace(`
	SELECT ps.zone_id, COUNT(vm.id), SUM(f.vcpu), SUM(f.ram), SUM(f.disk)
	  FROM physical_servers ps
	  JOIN virtual_machines vm ON vm.server_id = ps.id
	  JOIN flavors f ON f.id = vm.flavor_id
	 GROUP BY ps.zone_id
`)

// GetZones returns the aggregated capacity of every availability zone.
func GetZones(dbi db.Interface) ([]ZoneSummary, error) {
	var (
		result  []ZoneSummary
		byID    = make(map[int64]*ZoneSummary)
		indexOf = make(map[int64]int)
	)

	// first query: zone identity, server counts and physical totals
	err := sqlext.ForeachRow(dbi, zoneCapacityQuery, nil, func(rows *sql.Rows) error {
		var zone ZoneSummary
		err := rows.Scan(&zone.ID, &zone.Name, &zone.Description,
			&zone.ServerCount, &zone.TotalVCPU, &zone.TotalRAM, &zone.TotalDisk)
		if err != nil {
			return err
		}
		indexOf[zone.ID] = len(result)
		result = append(result, zone)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while aggregating zone capacity: %w", err)
	}
	for id, idx := range indexOf {
		byID[id] = &result[idx]
	}

	// second query: slice membership counts
	err = sqlext.ForeachRow(dbi, zoneSliceCountQuery, nil, func(rows *sql.Rows) error {
		var (
			zoneID     int64
			sliceCount int64
		)
		err := rows.Scan(&zoneID, &sliceCount)
		if err != nil {
			return err
		}
		if zone, exists := byID[zoneID]; exists {
			zone.SliceCount = sliceCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while counting slices per zone: %w", err)
	}

	// third query: usage recomputed from the VM->flavor graph
	err = sqlext.ForeachRow(dbi, zoneUsageQuery, nil, func(rows *sql.Rows) error {
		var (
			zoneID   int64
			vmCount  int64
			usedVCPU int64
			usedRAM  int64
			usedDisk int64
		)
		err := rows.Scan(&zoneID, &vmCount, &usedVCPU, &usedRAM, &usedDisk)
		if err != nil {
			return err
		}
		zone, exists := byID[zoneID]
		if !exists {
			// dangling server reference; the capacity query enumerated all zones
			return fmt.Errorf("usage aggregation found VMs in unknown zone %d", zoneID)
		}
		zone.TotalVMs = vmCount
		zone.UsedVCPU = usedVCPU
		zone.UsedRAM = usedRAM
		zone.UsedDisk = usedDisk
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while recomputing zone usage: %w", err)
	}

	return result, nil
}

var zoneServerQuery = sqlext.SimplifyWhitespace(`
	SELECT ps.id, ps.name, ps.ip, ps.status,
	       ps.total_vcpu, ps.used_vcpu, ps.total_ram, ps.used_ram, ps.total_disk, ps.used_disk,
	       COUNT(vm.id), COALESCE(SUM(f.vcpu), 0), COALESCE(SUM(f.ram), 0), COALESCE(SUM(f.disk), 0)
	  FROM physical_servers ps
	  LEFT OUTER JOIN virtual_machines vm ON vm.server_id = ps.id
	  LEFT OUTER JOIN flavors f ON f.id = vm.flavor_id
	 WHERE ps.zone_id = $1
	 GROUP BY ps.id
	 ORDER BY ps.id
`)

// GetZoneDetail returns the aggregated capacity of a single availability
// zone, with per-server and per-slice breakdowns. A nil return value without
// error means that the zone does not exist.
func GetZoneDetail(dbi db.Interface, zoneID int64) (*ZoneDetail, error) {
	var zone db.AvailabilityZone
	err := dbi.SelectOne(&zone, `SELECT * FROM availability_zones WHERE id = $1`, zoneID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	detail := ZoneDetail{
		ZoneSummary: ZoneSummary{
			ID:          zone.ID,
			Name:        zone.Name,
			Description: zone.Description,
		},
	}

	detail.Servers, err = collectZoneServers(dbi, zoneID, &detail)
	if err != nil {
		return nil, err
	}

	detail.Slices, err = GetSlices(dbi, &zoneID)
	if err != nil {
		return nil, err
	}
	detail.SliceCount = int64(len(detail.Slices))

	return &detail, nil
}

// GetZoneServers returns the per-server breakdown of a single availability
// zone, without the zone-level aggregation of GetZoneDetail. A nil return
// value without error means that the zone does not exist.
func GetZoneServers(dbi db.Interface, zoneID int64) ([]ServerReport, error) {
	var zone db.AvailabilityZone
	err := dbi.SelectOne(&zone, `SELECT * FROM availability_zones WHERE id = $1`, zoneID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return collectZoneServers(dbi, zoneID, nil)
}

// collectZoneServers walks the server/VM graph of one zone. When detail is
// given, the zone totals accumulate into it; the recomputed per-server VM sums
// exist only inside this walk, so the accumulation cannot happen later.
func collectZoneServers(dbi db.Interface, zoneID int64, detail *ZoneDetail) ([]ServerReport, error) {
	servers := []ServerReport{}
	err := sqlext.ForeachRow(dbi, zoneServerQuery, []any{zoneID}, func(rows *sql.Rows) error {
		var (
			srv    ServerReport
			vmVCPU int64
			vmRAM  int64
			vmDisk int64
		)
		err := rows.Scan(&srv.ID, &srv.Hostname, &srv.IP, &srv.Status,
			&srv.TotalVCPU, &srv.UsedVCPU, &srv.TotalRAM, &srv.UsedRAM, &srv.TotalDisk, &srv.UsedDisk,
			&srv.VMCount, &vmVCPU, &vmRAM, &vmDisk)
		if err != nil {
			return err
		}

		srv.CounterDrift = srv.UsedVCPU != vmVCPU || srv.UsedRAM != vmRAM || srv.UsedDisk != vmDisk
		if srv.CounterDrift {
			logg.Info("usage counter drift on server %s (id %d): agent reports %d/%d/%d, VM flavors sum to %d/%d/%d",
				srv.Hostname, srv.ID, srv.UsedVCPU, srv.UsedRAM, srv.UsedDisk, vmVCPU, vmRAM, vmDisk)
		}

		if detail != nil {
			detail.ServerCount++
			detail.TotalVCPU += srv.TotalVCPU
			detail.TotalRAM += srv.TotalRAM
			detail.TotalDisk += srv.TotalDisk
			detail.TotalVMs += srv.VMCount
			detail.UsedVCPU += vmVCPU
			detail.UsedRAM += vmRAM
			detail.UsedDisk += vmDisk
		}

		servers = append(servers, srv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("while aggregating servers in zone %d: %w", zoneID, err)
	}
	return servers, nil
}
