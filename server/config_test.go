package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.json"))
	require.NoError(t, err)
	require.Len(t, cfg.Cameras, 1)
	require.Equal(t, "cam0", cfg.Cameras[0].Name)
	require.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	require.Equal(t, DefaultRecordBitrateKbps, cfg.RecordBitrateKbps)
	require.Equal(t, DefaultPreviewWidth, cfg.Cameras[0].Width)
	require.NotEmpty(t, cfg.OutputDir)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "config.json")
	body := `{
		"cameras": [
			{"name": "front", "width": 1920, "height": 1080, "fps": 15},
			{"name": "back", "disableDetection": true}
		],
		"outputDir": "/data/videos",
		"httpPort": 9000,
		"confidenceLimit": 0.5
	}`
	require.NoError(t, os.WriteFile(filename, []byte(body), 0644))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	require.Len(t, cfg.Cameras, 2)
	require.Equal(t, 1920, cfg.Cameras[0].Width)
	require.Equal(t, 15, cfg.Cameras[0].FPS)
	require.True(t, cfg.Cameras[1].DisableDetection)
	// Unspecified camera fields get defaults
	require.Equal(t, DefaultPreviewWidth, cfg.Cameras[1].Width)
	require.Equal(t, DefaultPreviewFPS, cfg.Cameras[1].FPS)
	require.Equal(t, "/data/videos", cfg.OutputDir)
	require.Equal(t, 9000, cfg.HTTPPort)
	require.Equal(t, float32(0.5), cfg.ConfidenceLimit)
	// The .env search starts at the config file's directory by default
	require.Equal(t, dir, cfg.ResourceStartDir)

	require.NotNil(t, cfg.CameraByName("front"))
	require.Nil(t, cfg.CameraByName("nope"))
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	filename := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(filename, []byte("{not json"), 0644))
	_, err := LoadConfig(filename)
	require.Error(t, err)

	filename = filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{"cameras": [{"name": "a"}, {"name": "a"}]}`), 0644))
	_, err = LoadConfig(filename)
	require.ErrorContains(t, err, "Duplicate camera name")
}
