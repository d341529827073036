package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/pihailo/pihailo/pkg/nn"
	"github.com/stretchr/testify/require"
)

const sampleLine = `{"timestamp (ms)": 1234, "stream_id": "cam0", "HailoROI": {"SubObjects": [` +
	`{"HailoDetection": {"HailoBBox": {"xmin": 0.25, "ymin": 0.25, "width": 0.5, "height": 0.5}, "label": "person", "confidence": 0.87}},` +
	`{"HailoDetection": {"HailoBBox": {"xmin": 0.1, "ymin": 0.1, "width": 0.2, "height": 0.2}, "label": "cat", "confidence": 0.12}}` +
	`]}}`

func TestParseExportLine(t *testing.T) {
	result, err := ParseExportLine([]byte(sampleLine), "cam0", 7, 640, 480)
	require.NoError(t, err)
	require.Equal(t, "cam0", result.Camera)
	require.Equal(t, int64(7), result.FrameID)
	require.Len(t, result.Objects, 2)

	person := result.Objects[0]
	require.Equal(t, "person", person.Label)
	require.Equal(t, nn.COCOPerson, person.Class)
	require.Equal(t, float32(0.87), person.Confidence)
	require.Equal(t, nn.Rect{X: 160, Y: 120, Width: 320, Height: 240}, person.Box)

	_, err = ParseExportLine([]byte("not json"), "cam0", 1, 640, 480)
	require.Error(t, err)
}

func TestParseExportLineEmptyROI(t *testing.T) {
	result, err := ParseExportLine([]byte(`{"timestamp (ms)": 1, "HailoROI": {}}`), "cam0", 1, 640, 480)
	require.NoError(t, err)
	require.Empty(t, result.Objects)
}

func waitFor(t *testing.T, timeout time.Duration, poll func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if poll() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Timeout waiting for condition")
}

func TestMonitorTail(t *testing.T) {
	exportFile := filepath.Join(t.TempDir(), "detections.json")
	m := NewMonitor(logs.NewTestingLog(t), "cam0", exportFile, 640, 480, 0.3)
	defer m.Close()

	require.Nil(t, m.Latest())

	sub := m.Subscribe()

	// The monitor must pick up the file once the pipeline creates it
	require.NoError(t, os.WriteFile(exportFile, []byte(sampleLine+"\n"), 0644))

	waitFor(t, 5*time.Second, func() bool { return m.Latest() != nil })

	latest := m.Latest()
	// The 0.12 confidence cat is below the 0.3 threshold
	require.Len(t, latest.Objects, 1)
	require.Equal(t, "person", latest.Objects[0].Label)

	select {
	case result := <-sub:
		require.Equal(t, int64(1), result.FrameID)
	case <-time.After(5 * time.Second):
		t.Fatal("Subscriber never received a result")
	}

	// Appended lines arrive with increasing frame IDs
	f, err := os.OpenFile(exportFile, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(sampleLine + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	waitFor(t, 5*time.Second, func() bool { return m.Latest().FrameID == 2 })

	m.Unsubscribe(sub)
}
