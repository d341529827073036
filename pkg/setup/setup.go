package setup

// Package setup verifies that the machine has the external tools that the
// service depends on (camera apps, ffmpeg, GStreamer and the Hailo plugins),
// and produces a report with install hints for whatever is missing.

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/pihailo/pihailo/pkg/gst"
	"github.com/pihailo/pihailo/pkg/shell"
)

// Check is the result of probing for one tool or GStreamer element.
type Check struct {
	Name        string `json:"name"`
	Found       bool   `json:"found"`
	Path        string `json:"path,omitempty"`        // Resolved binary path, for programs
	InstallHint string `json:"installHint,omitempty"` // How to install, when not found
	Optional    bool   `json:"optional,omitempty"`    // Missing optional checks don't fail the report
}

// Report is the outcome of all setup checks.
type Report struct {
	Checks []Check `json:"checks"`

	// VideoCommand is the camera capture program we'll use (rpicam-vid, or
	// libcamera-vid on older OS images). Empty when neither is installed.
	VideoCommand string `json:"videoCommand,omitempty"`
}

// Programs we need on the PATH
var programChecks = []struct {
	names    []string // alternatives, first found wins
	hint     string
	optional bool
}{
	{names: []string{"rpicam-vid", "libcamera-vid"}, hint: "sudo apt install -y rpicam-apps"},
	{names: []string{"ffmpeg"}, hint: "sudo apt install -y ffmpeg"},
	{names: []string{"gst-launch-1.0"}, hint: "sudo apt install -y gstreamer1.0-tools"},
	{names: []string{"gst-inspect-1.0"}, hint: "sudo apt install -y gstreamer1.0-tools"},
}

// GStreamer elements the detection pipeline needs
var elementChecks = []struct {
	name     string
	optional bool
}{
	{name: "libcamerasrc"},
	{name: "videoconvert"},
	{name: "x264enc"},
	{name: "avenc_h264", optional: true}, // fallback encoder, only needed if x264enc is absent
	{name: "matroskamux"},
	{name: "hailonet"},
	{name: "hailofilter"},
	{name: "hailooverlay"},
	{name: "hailocropper"},
	{name: "hailoaggregator"},
	{name: "hailoexportfile"},
}

// RunChecks probes for every required tool and pipeline element.
func RunChecks(logger logs.Log) *Report {
	report := &Report{}

	for _, pc := range programChecks {
		path := shell.First(pc.names...)
		check := Check{
			Name:     strings.Join(pc.names, " or "),
			Found:    path != "",
			Path:     path,
			Optional: pc.optional,
		}
		if !check.Found {
			check.InstallHint = pc.hint
			logger.Warnf("Setup check failed: %v not found (%v)", check.Name, pc.hint)
		}
		report.Checks = append(report.Checks, check)
		if pc.names[0] == "rpicam-vid" && path != "" {
			report.VideoCommand = path
		}
	}

	// Element checks need gst-inspect-1.0, so skip them if it's missing
	if _, err := exec.LookPath("gst-inspect-1.0"); err != nil {
		return report
	}

	for _, ec := range elementChecks {
		check := Check{Name: ec.name, Optional: ec.optional, Found: gst.Inspect(ec.name) == nil}
		if !check.Found {
			check.InstallHint = gst.InstallHint(ec.name)
			if !ec.optional {
				logger.Warnf("Setup check failed: GStreamer element %v not found (%v)", ec.name, check.InstallHint)
			}
		}
		report.Checks = append(report.Checks, check)
	}

	return report
}

// OK returns true if every required check passed.
func (r *Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Found && !check.Optional {
			return false
		}
	}
	return true
}

// Missing returns the required checks that failed.
func (r *Report) Missing() []Check {
	missing := []Check{}
	for _, check := range r.Checks {
		if !check.Found && !check.Optional {
			missing = append(missing, check)
		}
	}
	return missing
}

// String renders a human readable report, for the --doctor CLI mode.
func (r *Report) String() string {
	b := strings.Builder{}
	for _, check := range r.Checks {
		status := "OK "
		if !check.Found {
			status = "MISSING"
			if check.Optional {
				status = "missing (optional)"
			}
		}
		line := fmt.Sprintf("%-24v %v", check.Name, status)
		if check.Found && check.Path != "" {
			line += " " + check.Path
		}
		if !check.Found && check.InstallHint != "" {
			line += "\n" + fmt.Sprintf("%24v install: %v", "", check.InstallHint)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if r.OK() {
		b.WriteString("All required tools are installed\n")
	} else {
		b.WriteString(fmt.Sprintf("%v required tool(s) missing\n", len(r.Missing())))
	}
	return b.String()
}
