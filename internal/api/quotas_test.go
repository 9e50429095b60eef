// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"testing"

	"github.com/sapcc/go-bits/assert"
)

func quotaJSON(quota, usage, percent int64) assert.JSONObject {
	return assert.JSONObject{"quota": quota, "usage": usage, "usage_percent": percent}
}

func TestGetQuota(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/v1/tenants/uuid-for-acme/quota",
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-acme",
				"tenant_name": "acme",
				"cpu":         quotaJSON(10, 5, 50),
				"ram":         quotaJSON(8192, 4096, 50),
				"disk":        quotaJSON(100, 30, 30),
				"slices":      quotaJSON(2, 1, 50),
			},
		},
	}.Check(t, s.Handler)

	// overcommitted cpu reports >100%, a zero limit always reports 0%
	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/v1/tenants/uuid-for-globex/quota",
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-globex",
				"tenant_name": "globex",
				"cpu":         quotaJSON(4, 6, 150),
				"ram":         quotaJSON(0, 0, 0),
				"disk":        quotaJSON(20, 5, 25),
				"slices":      quotaJSON(1, 1, 100),
			},
		},
	}.Check(t, s.Handler)
}

func TestGetQuotaErrors(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/v1/tenants/uuid-for-unknown/quota",
		ExpectStatus: http.StatusNotFound,
		ExpectBody:   assert.StringData("no such tenant\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/v1/tenants/uuid-for-initech/quota",
		ExpectStatus: http.StatusNotFound,
		ExpectBody:   assert.StringData("tenant has no quota record (use POST .../quota/init to create one)\n"),
	}.Check(t, s.Handler)
}

func TestListQuotas(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/v1/quotas",
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quotas": []assert.JSONObject{
				{
					"tenant_id":   "uuid-for-acme",
					"tenant_name": "acme",
					"cpu":         quotaJSON(10, 5, 50),
					"ram":         quotaJSON(8192, 4096, 50),
					"disk":        quotaJSON(100, 30, 30),
					"slices":      quotaJSON(2, 1, 50),
				},
				{
					"tenant_id":   "uuid-for-globex",
					"tenant_name": "globex",
					"cpu":         quotaJSON(4, 6, 150),
					"ram":         quotaJSON(0, 0, 0),
					"disk":        quotaJSON(20, 5, 25),
					"slices":      quotaJSON(1, 1, 100),
				},
			},
		},
	}.Check(t, s.Handler)
}

func TestPutQuota(t *testing.T) {
	s := setupTest(t)

	// overwrite existing limits, leaving usage untouched
	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota",
		Body:         assert.JSONObject{"cpu": 20, "ram": 16384, "disk": 200, "slices": 4},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-acme",
				"tenant_name": "acme",
				"cpu":         quotaJSON(20, 5, 25),
				"ram":         quotaJSON(16384, 4096, 25),
				"disk":        quotaJSON(200, 30, 15),
				"slices":      quotaJSON(4, 1, 25),
			},
		},
	}.Check(t, s.Handler)

	// limits and usage in the same request
	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota",
		Body:         assert.JSONObject{"cpu": 20, "ram": 16384, "disk": 200, "slices": 4, "used_cpu": 10, "used_slices": 2},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-acme",
				"tenant_name": "acme",
				"cpu":         quotaJSON(20, 10, 50),
				"ram":         quotaJSON(16384, 4096, 25),
				"disk":        quotaJSON(200, 30, 15),
				"slices":      quotaJSON(4, 2, 50),
			},
		},
	}.Check(t, s.Handler)

	// creates the record if the tenant does not have one yet
	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-initech/quota",
		Body:         assert.JSONObject{"cpu": 8, "ram": 2048, "disk": 50, "slices": 2},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-initech",
				"tenant_name": "initech",
				"cpu":         quotaJSON(8, 0, 0),
				"ram":         quotaJSON(2048, 0, 0),
				"disk":        quotaJSON(50, 0, 0),
				"slices":      quotaJSON(2, 0, 0),
			},
		},
	}.Check(t, s.Handler)
}

func TestPutQuotaErrors(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota",
		Body:         assert.JSONObject{"cpu": 20},
		ExpectStatus: http.StatusBadRequest,
		ExpectBody:   assert.StringData("missing required fields: ram, disk, slices\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota",
		Body:         assert.JSONObject{"cpu": -1, "ram": 16384, "disk": 200, "slices": 4},
		ExpectStatus: http.StatusBadRequest,
		ExpectBody:   assert.StringData("fields may not be negative: cpu\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-unknown/quota",
		Body:         assert.JSONObject{"cpu": 20, "ram": 16384, "disk": 200, "slices": 4},
		ExpectStatus: http.StatusNotFound,
		ExpectBody:   assert.StringData("no such tenant\n"),
	}.Check(t, s.Handler)
}

func TestInitQuota(t *testing.T) {
	s := setupTest(t)

	// without a body, the configured defaults apply
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/init",
		ExpectStatus: http.StatusCreated,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-initech",
				"tenant_name": "initech",
				"cpu":         quotaJSON(4, 0, 0),
				"ram":         quotaJSON(4096, 0, 0),
				"disk":        quotaJSON(30, 0, 0),
				"slices":      quotaJSON(1, 0, 0),
			},
		},
	}.Check(t, s.Handler)

	// a second init on the same tenant conflicts
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/init",
		ExpectStatus: http.StatusConflict,
		ExpectBody:   assert.StringData("tenant already has a quota record\n"),
	}.Check(t, s.Handler)
}

func TestInitQuotaWithOverrides(t *testing.T) {
	s := setupTest(t)

	// explicit fields override the defaults, absent ones fall back
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/init",
		Body:         assert.JSONObject{"cpu": 16, "slices": 5},
		ExpectStatus: http.StatusCreated,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-initech",
				"tenant_name": "initech",
				"cpu":         quotaJSON(16, 0, 0),
				"ram":         quotaJSON(4096, 0, 0),
				"disk":        quotaJSON(30, 0, 0),
				"slices":      quotaJSON(5, 0, 0),
			},
		},
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-acme/quota/init",
		ExpectStatus: http.StatusConflict,
		ExpectBody:   assert.StringData("tenant already has a quota record\n"),
	}.Check(t, s.Handler)
}

func TestPutQuotaUsage(t *testing.T) {
	s := setupTest(t)

	// only the given counters are patched
	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota/usage",
		Body:         assert.JSONObject{"used_cpu": 8, "used_disk": 90},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-acme",
				"tenant_name": "acme",
				"cpu":         quotaJSON(10, 8, 80),
				"ram":         quotaJSON(8192, 4096, 50),
				"disk":        quotaJSON(100, 90, 90),
				"slices":      quotaJSON(2, 1, 50),
			},
		},
	}.Check(t, s.Handler)

	// usage above the limit is accepted
	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota/usage",
		Body:         assert.JSONObject{"used_cpu": 20},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-acme",
				"tenant_name": "acme",
				"cpu":         quotaJSON(10, 20, 200),
				"ram":         quotaJSON(8192, 4096, 50),
				"disk":        quotaJSON(100, 90, 90),
				"slices":      quotaJSON(2, 1, 50),
			},
		},
	}.Check(t, s.Handler)
}

func TestPutQuotaUsageErrors(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota/usage",
		Body:         assert.JSONObject{},
		ExpectStatus: http.StatusBadRequest,
		ExpectBody:   assert.StringData("request body contains no recognized usage field\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-acme/quota/usage",
		Body:         assert.JSONObject{"used_ram": -5},
		ExpectStatus: http.StatusBadRequest,
		ExpectBody:   assert.StringData("fields may not be negative: used_ram\n"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-initech/quota/usage",
		Body:         assert.JSONObject{"used_cpu": 1},
		ExpectStatus: http.StatusNotFound,
		ExpectBody:   assert.StringData("tenant has no quota record (use POST .../quota/init to create one)\n"),
	}.Check(t, s.Handler)
}

// A usage report written through the API must be visible to the next
// availability check on the same tenant.
func TestCheckQuotaAfterUsageReport(t *testing.T) {
	s := setupTest(t)

	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/init",
		ExpectStatus: http.StatusCreated,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-initech",
				"tenant_name": "initech",
				"cpu":         quotaJSON(4, 0, 0),
				"ram":         quotaJSON(4096, 0, 0),
				"disk":        quotaJSON(30, 0, 0),
				"slices":      quotaJSON(1, 0, 0),
			},
		},
	}.Check(t, s.Handler)

	// on a fresh record, a request within the limits fits
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/check",
		Body:         assert.JSONObject{"cpu": 2},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"available":              true,
			"insufficient_resources": []string{},
			"requested":              assert.JSONObject{"cpu": 2, "ram": 0, "disk": 0, "slices": 0},
			"assigned":               assert.JSONObject{"cpu": 4, "ram": 4096, "disk": 30, "slices": 1},
			"used":                   assert.JSONObject{"cpu": 0, "ram": 0, "disk": 0, "slices": 0},
			"available_resources":    assert.JSONObject{"cpu": 4, "ram": 4096, "disk": 30, "slices": 1},
		},
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "PUT",
		Path:         "/v1/tenants/uuid-for-initech/quota/usage",
		Body:         assert.JSONObject{"used_cpu": 2},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"quota": assert.JSONObject{
				"tenant_id":   "uuid-for-initech",
				"tenant_name": "initech",
				"cpu":         quotaJSON(4, 2, 50),
				"ram":         quotaJSON(4096, 0, 0),
				"disk":        quotaJSON(30, 0, 0),
				"slices":      quotaJSON(1, 0, 0),
			},
		},
	}.Check(t, s.Handler)

	// the reported usage shrinks the headroom to 2, so 3 no longer fits
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/check",
		Body:         assert.JSONObject{"cpu": 3},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"available":              false,
			"insufficient_resources": []string{"cpu"},
			"requested":              assert.JSONObject{"cpu": 3, "ram": 0, "disk": 0, "slices": 0},
			"assigned":               assert.JSONObject{"cpu": 4, "ram": 4096, "disk": 30, "slices": 1},
			"used":                   assert.JSONObject{"cpu": 2, "ram": 0, "disk": 0, "slices": 0},
			"available_resources":    assert.JSONObject{"cpu": 2, "ram": 4096, "disk": 30, "slices": 1},
		},
	}.Check(t, s.Handler)
}

func TestCheckQuota(t *testing.T) {
	s := setupTest(t)

	// acme headroom is cpu=5, ram=4096, disk=70, slices=1; a request that
	// matches the headroom exactly still fits
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-acme/quota/check",
		Body:         assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 70, "slices": 1},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"available":              true,
			"insufficient_resources": []string{},
			"requested":              assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 70, "slices": 1},
			"assigned":               assert.JSONObject{"cpu": 10, "ram": 8192, "disk": 100, "slices": 2},
			"used":                   assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 30, "slices": 1},
			"available_resources":    assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 70, "slices": 1},
		},
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-acme/quota/check",
		Body:         assert.JSONObject{"cpu": 6, "ram": 1, "disk": 80, "slices": 2},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"available":              false,
			"insufficient_resources": []string{"cpu", "disk", "slices"},
			"requested":              assert.JSONObject{"cpu": 6, "ram": 1, "disk": 80, "slices": 2},
			"assigned":               assert.JSONObject{"cpu": 10, "ram": 8192, "disk": 100, "slices": 2},
			"used":                   assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 30, "slices": 1},
			"available_resources":    assert.JSONObject{"cpu": 5, "ram": 4096, "disk": 70, "slices": 1},
		},
	}.Check(t, s.Handler)

	// an overcommitted resource has negative headroom, so even a zero request
	// lists it as insufficient
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-globex/quota/check",
		Body:         assert.JSONObject{},
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"available":              false,
			"insufficient_resources": []string{"cpu"},
			"requested":              assert.JSONObject{"cpu": 0, "ram": 0, "disk": 0, "slices": 0},
			"assigned":               assert.JSONObject{"cpu": 4, "ram": 0, "disk": 20, "slices": 1},
			"used":                   assert.JSONObject{"cpu": 6, "ram": 0, "disk": 5, "slices": 1},
			"available_resources":    assert.JSONObject{"cpu": -2, "ram": 0, "disk": 15, "slices": 0},
		},
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/v1/tenants/uuid-for-initech/quota/check",
		Body:         assert.JSONObject{"cpu": 1},
		ExpectStatus: http.StatusNotFound,
		ExpectBody:   assert.StringData("tenant has no quota record (use POST .../quota/init to create one)\n"),
	}.Check(t, s.Handler)
}
