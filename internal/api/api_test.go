// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"testing"

	"github.com/sapcc/go-bits/easypg"

	"github.com/sapcc/cumulus/internal/test"
)

func TestMain(m *testing.M) {
	easypg.WithTestDB(m, func() int { return m.Run() })
}

const testConfigYAML = `
	api:
		listen: ':8080'
	quota:
		default_cpu: 4
		default_ram: 4096
		default_disk: 30
		default_slices: 1
`

func setupTest(t *testing.T) test.Setup {
	t.Helper()
	return test.NewSetup(t,
		test.WithDBFixtureFile("fixtures/start-data.sql"),
		test.WithConfig(testConfigYAML),
		test.WithAPIHandler(NewV1API),
	)
}
