// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"database/sql"

	"github.com/go-gorp/gorp/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/sqlext"
)

var tenantQuotaGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cumulus_tenant_quota",
		Help: "Assigned quota of a resource for a tenant.",
	},
	[]string{"tenant", "tenant_id", "resource"},
)

var tenantUsageGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cumulus_tenant_usage",
		Help: "Reported usage of a resource for a tenant.",
	},
	[]string{"tenant", "tenant_id", "resource"},
)

var zoneCapacityGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cumulus_zone_capacity",
		Help: "Physical capacity of a resource in an availability zone.",
	},
	[]string{"zone", "resource"},
)

var zoneUsageGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cumulus_zone_usage",
		Help: "Usage of a resource in an availability zone, recomputed from VM flavors.",
	},
	[]string{"zone", "resource"},
)

var zoneVMCountGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cumulus_zone_virtual_machines",
		Help: "Number of virtual machines hosted in an availability zone.",
	},
	[]string{"zone"},
)

// DataMetricsCollector is a prometheus.Collector that submits
// quota/usage/capacity figures directly read from the database.
type DataMetricsCollector struct {
	DB *gorp.DbMap
}

// Describe implements the prometheus.Collector interface.
func (c *DataMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	tenantQuotaGauge.Describe(ch)
	tenantUsageGauge.Describe(ch)
	zoneCapacityGauge.Describe(ch)
	zoneUsageGauge.Describe(ch)
	zoneVMCountGauge.Describe(ch)
}

var tenantMetricsQuery = sqlext.SimplifyWhitespace(`
	SELECT t.name, t.uuid, q.cpu, q.ram, q.disk, q.slices,
	       q.used_cpu, q.used_ram, q.used_disk, q.used_slices
	  FROM tenants t
	  JOIN resource_quotas q ON q.tenant_id = t.id
`)

var zoneCapacityMetricsQuery = sqlext.SimplifyWhitespace(`
	SELECT az.name, COALESCE(SUM(ps.total_vcpu), 0), COALESCE(SUM(ps.total_ram), 0), COALESCE(SUM(ps.total_disk), 0)
	  FROM availability_zones az
	  LEFT OUTER JOIN physical_servers ps ON ps.zone_id = az.id
	 GROUP BY az.id
`)

var zoneUsageMetricsQuery = sqlext.SimplifyWhitespace(`
	SELECT az.name, COUNT(vm.id), COALESCE(SUM(f.vcpu), 0), COALESCE(SUM(f.ram), 0), COALESCE(SUM(f.disk), 0)
	  FROM availability_zones az
	  JOIN physical_servers ps ON ps.zone_id = az.id
	  JOIN virtual_machines vm ON vm.server_id = ps.id
	  JOIN flavors f ON f.id = vm.flavor_id
	 GROUP BY az.id
`)

// Collect implements the prometheus.Collector interface.
func (c *DataMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	// NewConstMetric() instead of storing values in the GaugeVec instances:
	// metrics of deleted tenants and zones just disappear on the next scrape
	descCh := make(chan *prometheus.Desc, 1)
	tenantQuotaGauge.Describe(descCh)
	tenantQuotaDesc := <-descCh
	tenantUsageGauge.Describe(descCh)
	tenantUsageDesc := <-descCh
	zoneCapacityGauge.Describe(descCh)
	zoneCapacityDesc := <-descCh
	zoneUsageGauge.Describe(descCh)
	zoneUsageDesc := <-descCh
	zoneVMCountGauge.Describe(descCh)
	zoneVMCountDesc := <-descCh

	submit := func(desc *prometheus.Desc, value int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(value), labels...)
	}

	err := sqlext.ForeachRow(c.DB, tenantMetricsQuery, nil, func(rows *sql.Rows) error {
		var (
			name  string
			uuid  string
			quota [4]int64
			usage [4]int64
		)
		err := rows.Scan(&name, &uuid,
			&quota[0], &quota[1], &quota[2], &quota[3],
			&usage[0], &usage[1], &usage[2], &usage[3])
		if err != nil {
			return err
		}
		for idx, resource := range []string{"cpu", "ram", "disk", "slices"} {
			submit(tenantQuotaDesc, quota[idx], name, uuid, resource)
			submit(tenantUsageDesc, usage[idx], name, uuid, resource)
		}
		return nil
	})
	if err != nil {
		logg.Error("collect tenant data metrics failed: " + err.Error())
	}

	err = sqlext.ForeachRow(c.DB, zoneCapacityMetricsQuery, nil, func(rows *sql.Rows) error {
		var (
			name     string
			capacity [3]int64
		)
		err := rows.Scan(&name, &capacity[0], &capacity[1], &capacity[2])
		if err != nil {
			return err
		}
		for idx, resource := range []string{"vcpu", "ram", "disk"} {
			submit(zoneCapacityDesc, capacity[idx], name, resource)
		}
		return nil
	})
	if err != nil {
		logg.Error("collect zone capacity metrics failed: " + err.Error())
	}

	err = sqlext.ForeachRow(c.DB, zoneUsageMetricsQuery, nil, func(rows *sql.Rows) error {
		var (
			name    string
			vmCount int64
			usage   [3]int64
		)
		err := rows.Scan(&name, &vmCount, &usage[0], &usage[1], &usage[2])
		if err != nil {
			return err
		}
		submit(zoneVMCountDesc, vmCount, name)
		for idx, resource := range []string{"vcpu", "ram", "disk"} {
			submit(zoneUsageDesc, usage[idx], name, resource)
		}
		return nil
	})
	if err != nil {
		logg.Error("collect zone usage metrics failed: " + err.Error())
	}
}
