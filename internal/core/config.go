// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"os"

	"github.com/sapcc/go-bits/logg"
	yaml "gopkg.in/yaml.v2"
)

// Configuration contains all the data from the configuration file.
type Configuration struct {
	API     APIConfiguration     `yaml:"api"`
	Quota   QuotaConfiguration   `yaml:"quota"`
	Metrics MetricsConfiguration `yaml:"metrics"`
}

// APIConfiguration contains configuration parameters for the serve task.
type APIConfiguration struct {
	ListenAddress      string   `yaml:"listen"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// QuotaConfiguration contains the default entitlements that a tenant receives
// when its quota record is initialized without explicit values. Pointer types
// keep an explicitly configured zero distinct from an absent key.
type QuotaConfiguration struct {
	DefaultCPU    *int64 `yaml:"default_cpu"`
	DefaultRAM    *int64 `yaml:"default_ram"` // in MiB
	DefaultDisk   *int64 `yaml:"default_disk"` // in GiB
	DefaultSlices *int64 `yaml:"default_slices"`
}

// MetricsConfiguration contains configuration parameters for the Prometheus
// exposition.
type MetricsConfiguration struct {
	ExposeDataMetrics bool `yaml:"data_metrics"`
}

// NewConfiguration reads and validates the given configuration file.
// Errors are logged and will result in program termination, causing the
// function to not return.
func NewConfiguration(path string) (cfg Configuration) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		logg.Fatal("read configuration file: %s", err.Error())
	}
	err = yaml.UnmarshalStrict(configBytes, &cfg)
	if err != nil {
		logg.Fatal("parse configuration: %s", err.Error())
	}
	if !cfg.validate() {
		os.Exit(1)
	}
	cfg.Quota.ApplyDefaults()
	return
}

func (cfg Configuration) validate() (success bool) {
	// do not fail on first error; keep going and report all errors at once
	success = true // until proven otherwise

	missing := func(key string) {
		logg.Error("missing %s configuration value", key)
		success = false
	}
	if cfg.API.ListenAddress == "" {
		missing("api.listen")
	}

	q := cfg.Quota
	for key, value := range map[string]*int64{
		"default_cpu":    q.DefaultCPU,
		"default_ram":    q.DefaultRAM,
		"default_disk":   q.DefaultDisk,
		"default_slices": q.DefaultSlices,
	} {
		if value != nil && *value < 0 {
			logg.Error("quota.%s may not be negative", key)
			success = false
		}
	}

	return
}

// ApplyDefaults fills unset quota defaults with their builtin values.
// Explicitly configured values (including zero) stay untouched.
func (q *QuotaConfiguration) ApplyDefaults() {
	fillDefault(&q.DefaultCPU, 4)
	fillDefault(&q.DefaultRAM, 4096)
	fillDefault(&q.DefaultDisk, 30)
	fillDefault(&q.DefaultSlices, 1)
}

func fillDefault(field **int64, value int64) {
	if *field == nil {
		*field = &value
	}
}
