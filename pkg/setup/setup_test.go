package setup

import (
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestReportOK(t *testing.T) {
	r := &Report{Checks: []Check{
		{Name: "ffmpeg", Found: true, Path: "/usr/bin/ffmpeg"},
		{Name: "avenc_h264", Found: false, Optional: true},
	}}
	require.True(t, r.OK())
	require.Empty(t, r.Missing())

	r.Checks = append(r.Checks, Check{Name: "hailonet", Found: false, InstallHint: "install hailo-all"})
	require.False(t, r.OK())
	require.Len(t, r.Missing(), 1)
	require.Equal(t, "hailonet", r.Missing()[0].Name)
}

func TestReportString(t *testing.T) {
	r := &Report{Checks: []Check{
		{Name: "ffmpeg", Found: true, Path: "/usr/bin/ffmpeg"},
		{Name: "x264enc", Found: false, InstallHint: "sudo apt install -y gstreamer1.0-plugins-ugly"},
		{Name: "avenc_h264", Found: false, Optional: true},
	}}
	s := r.String()
	require.Contains(t, s, "ffmpeg")
	require.Contains(t, s, "/usr/bin/ffmpeg")
	require.Contains(t, s, "MISSING")
	require.Contains(t, s, "install: sudo apt install -y gstreamer1.0-plugins-ugly")
	require.Contains(t, s, "missing (optional)")
	require.Contains(t, s, "1 required tool(s) missing")
}

// RunChecks probes the real machine, so we only assert on its shape
func TestRunChecks(t *testing.T) {
	report := RunChecks(logs.NewTestingLog(t))
	require.NotEmpty(t, report.Checks)

	names := []string{}
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Contains(t, strings.Join(names, ","), "ffmpeg")
	require.Contains(t, strings.Join(names, ","), "rpicam-vid or libcamera-vid")
}
