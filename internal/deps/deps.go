// Package deps probes the external binaries storyforge shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"storyforge/internal/config"
)

// Requirement names an external binary a compilation stage invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the probed availability of one requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// For lists the external tools the given configuration relies on.
func For(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcode.FFmpegBinary,
			Description: "Required for audio canonicalization",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Transcode.FFprobeBinary,
			Description: "Used for media inspection",
			Optional:    true,
		},
	}
}

// Check probes each requirement and reports availability. Commands are
// resolved through PATH unless configured as absolute paths.
func Check(requirements []Requirement) []Status {
	statuses := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		statuses = append(statuses, req.probe())
	}
	return statuses
}

func (r Requirement) probe() Status {
	status := Status{Requirement: r}
	status.Command = strings.TrimSpace(r.Command)
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}
