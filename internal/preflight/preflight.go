// Package preflight verifies the environment before compilation or a
// device sync touches anything.
package preflight

import (
	"storyforge/internal/config"
	"storyforge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks for the given config. The device
// root is only checked when one is configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("Asset cache", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.DeviceRoot != "" {
		results = append(results, CheckDirectoryAccess("Device root", cfg.Paths.DeviceRoot))
	}
	return results
}

// CheckTools probes every external binary the config names.
func CheckTools(cfg *config.Config) []deps.Status {
	return deps.Check(deps.For(cfg))
}
