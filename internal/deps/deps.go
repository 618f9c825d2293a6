// Package deps reports which external transform tools are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"converto/internal/config"
)

// Requirement defines an external tool converto invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the tools configured in tools.
func Requirements(tools config.Tools) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: tools.FFmpeg, Description: "Video, audio, and gif conversion; media compression"},
		{Name: "ImageMagick", Command: tools.Magick, Description: "Image conversion and compression"},
		{Name: "LibreOffice", Command: tools.Soffice, Description: "Office and PDF document conversion"},
		{Name: "rembg", Command: tools.Rembg, Description: "Background removal"},
		{Name: "FFprobe", Command: tools.FFprobe, Description: "Output stream verification", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if path, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
				if path != cmd {
					status.Detail = path
				}
			}
		}
		results = append(results, status)
	}
	return results
}

// Check evaluates every configured tool.
func Check(tools config.Tools) []Status {
	return CheckBinaries(Requirements(tools))
}

// MissingRequired returns the names of unavailable, non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
