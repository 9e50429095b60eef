// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

var sqlMigrations = map[string]string{
	"001_initial.down.sql": `
		DROP TABLE virtual_machines;
		DROP TABLE slice_availability_zones;
		DROP TABLE slice_ownerships;
		DROP TABLE slices;
		DROP TABLE flavors;
		DROP TABLE physical_servers;
		DROP TABLE availability_zones;
		DROP TABLE resource_quotas;
		DROP TABLE tenants;
	`,
	"001_initial.up.sql": `
		---------- tenant level

		CREATE TABLE tenants (
			id    BIGSERIAL  NOT NULL PRIMARY KEY,
			uuid  TEXT       NOT NULL UNIQUE,
			name  TEXT       NOT NULL
		);

		CREATE TABLE resource_quotas (
			id           BIGSERIAL  NOT NULL PRIMARY KEY,
			tenant_id    BIGINT     NOT NULL UNIQUE REFERENCES tenants ON DELETE CASCADE,
			cpu          BIGINT     NOT NULL,
			ram          BIGINT     NOT NULL,
			disk         BIGINT     NOT NULL,
			slices       BIGINT     NOT NULL,
			used_cpu     BIGINT     NOT NULL DEFAULT 0,
			used_ram     BIGINT     NOT NULL DEFAULT 0,
			used_disk    BIGINT     NOT NULL DEFAULT 0,
			used_slices  BIGINT     NOT NULL DEFAULT 0
		);

		---------- capacity graph

		CREATE TABLE availability_zones (
			id           BIGSERIAL  NOT NULL PRIMARY KEY,
			name         TEXT       NOT NULL UNIQUE,
			description  TEXT       NOT NULL DEFAULT ''
		);

		CREATE TABLE physical_servers (
			id          BIGSERIAL  NOT NULL PRIMARY KEY,
			zone_id     BIGINT     NOT NULL REFERENCES availability_zones ON DELETE CASCADE,
			name        TEXT       NOT NULL,
			ip          TEXT       NOT NULL DEFAULT '',
			status      TEXT       NOT NULL DEFAULT '',
			total_vcpu  BIGINT     NOT NULL,
			total_ram   BIGINT     NOT NULL,
			total_disk  BIGINT     NOT NULL,
			used_vcpu   BIGINT     NOT NULL DEFAULT 0,
			used_ram    BIGINT     NOT NULL DEFAULT 0,
			used_disk   BIGINT     NOT NULL DEFAULT 0
		);

		CREATE TABLE flavors (
			id         BIGSERIAL  NOT NULL PRIMARY KEY,
			name       TEXT       NOT NULL,
			vcpu       BIGINT     NOT NULL,
			ram        BIGINT     NOT NULL,
			disk       BIGINT     NOT NULL,
			tenant_id  BIGINT     DEFAULT NULL REFERENCES tenants ON DELETE SET NULL
		);

		CREATE TABLE slices (
			id           BIGSERIAL  NOT NULL PRIMARY KEY,
			name         TEXT       NOT NULL,
			description  TEXT       NOT NULL DEFAULT '',
			status       TEXT       NOT NULL DEFAULT '',
			created_at   TIMESTAMP  DEFAULT NULL
		);

		-- slice_id is the primary key: a slice has at most one owner, which the
		-- slice summary projections rely on
		CREATE TABLE slice_ownerships (
			slice_id   BIGINT  NOT NULL PRIMARY KEY REFERENCES slices ON DELETE CASCADE,
			tenant_id  BIGINT  NOT NULL REFERENCES tenants ON DELETE CASCADE
		);

		CREATE TABLE slice_availability_zones (
			slice_id  BIGINT  NOT NULL REFERENCES slices ON DELETE CASCADE,
			zone_id   BIGINT  NOT NULL REFERENCES availability_zones ON DELETE CASCADE,
			PRIMARY KEY (slice_id, zone_id)
		);

		-- ON DELETE RESTRICT on flavor_id: a flavor stays immutable while any VM
		-- references it
		CREATE TABLE virtual_machines (
			id         BIGSERIAL  NOT NULL PRIMARY KEY,
			name       TEXT       NOT NULL,
			status     TEXT       NOT NULL DEFAULT '',
			flavor_id  BIGINT     NOT NULL REFERENCES flavors ON DELETE RESTRICT,
			slice_id   BIGINT     NOT NULL REFERENCES slices ON DELETE CASCADE,
			server_id  BIGINT     NOT NULL REFERENCES physical_servers ON DELETE CASCADE
		);
	`,
}
