package camrec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

// Stand-in for rpicam-vid: writes its output file, then waits for SIGINT
const fakeCaptureScript = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
	if [ "$1" = "-o" ]; then out="$2"; fi
	shift
done
echo "fake h264 data" > "$out"
trap 'exit 0' INT TERM
while true; do sleep 0.05; done
`

// Stand-in for ffmpeg: copies -i input to the last argument
const fakeFFmpegScript = `#!/bin/sh
src=""
prev=""
for arg in "$@"; do
	if [ "$prev" = "-i" ]; then src="$arg"; fi
	prev="$arg"
	dst="$arg"
done
cp "$src" "$dst"
`

func writeScript(t *testing.T, dir, name, body string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func TestRecorderLifecycle(t *testing.T) {
	binDir := t.TempDir()
	outDir := t.TempDir()
	capture := writeScript(t, binDir, "rpicam-vid", fakeCaptureScript)
	writeScript(t, binDir, "ffmpeg", fakeFFmpegScript)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	logger := logs.NewTestingLog(t)
	rec, err := StartPlain(logger, capture, Options{
		Camera:    "front door",
		OutputDir: outDir,
		Width:     1280,
		Height:    720,
		FPS:       10,
	})
	require.NoError(t, err)

	// Give the fake capture a moment to create its output
	time.Sleep(300 * time.Millisecond)

	result, err := rec.Stop()
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(result.MP4Path, ".mp4"))
	require.Contains(t, filepath.Base(result.MP4Path), "front_door_")
	require.Greater(t, result.SizeBytes, int64(0))
	require.Greater(t, result.Duration, time.Duration(0))

	// The intermediate .h264 must be gone, the .mp4 must exist
	_, err = os.Stat(result.MP4Path)
	require.NoError(t, err)
	matches, _ := filepath.Glob(filepath.Join(outDir, "*.h264"))
	require.Empty(t, matches)

	// Done channel is closed after Stop
	select {
	case <-rec.Done():
	default:
		t.Fatal("Done channel not closed after Stop")
	}
}

func TestRecorderMaxDuration(t *testing.T) {
	binDir := t.TempDir()
	outDir := t.TempDir()
	capture := writeScript(t, binDir, "rpicam-vid", fakeCaptureScript)
	writeScript(t, binDir, "ffmpeg", fakeFFmpegScript)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	logger := logs.NewTestingLog(t)
	rec, err := StartPlain(logger, capture, Options{
		Camera:      "cam0",
		OutputDir:   outDir,
		Width:       640,
		Height:      480,
		FPS:         10,
		MaxDuration: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	select {
	case <-rec.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("Recorder did not stop at MaxDuration")
	}
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "front_door", Sanitize("front door"))
	require.Equal(t, "cam-1", Sanitize("cam-1"))
	require.Equal(t, "_base_axi_cam_0", Sanitize("/base/axi/cam 0"))
}
