package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pihailo/pihailo/pkg/nn"
)

// Defaults applied by LoadConfig
const (
	DefaultHTTPPort          = 8097
	DefaultPreviewWidth      = 1280
	DefaultPreviewHeight     = 720
	DefaultPreviewFPS        = 10
	DefaultRecordBitrateKbps = 8000
)

// CameraConfig is one camera attached to the Pi.
type CameraConfig struct {
	// Name is the friendly name, used in URLs, filenames and logs
	Name string `json:"name"`

	// LibcameraName is the long device path from "rpicam-hello --list-cameras"
	// (eg /base/axi/pcie@1000120000/rp1/i2c@88000/imx708@1a). Empty means
	// the default camera, which is all you need on a Pi with one camera.
	LibcameraName string `json:"libcameraName,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	FPS    int `json:"fps,omitempty"`

	// DisableDetection turns off the Hailo pipeline for this camera, leaving
	// plain rpicam-vid recording only
	DisableDetection bool `json:"disableDetection,omitempty"`
}

// Config is the server's JSON config file.
type Config struct {
	Cameras []CameraConfig `json:"cameras"`

	// OutputDir holds recordings and the recordings index. Default $HOME/Videos.
	OutputDir string `json:"outputDir,omitempty"`

	HTTPPort          int     `json:"httpPort,omitempty"`
	RecordBitrateKbps int     `json:"recordBitrateKbps,omitempty"`
	RecordBatchSize   int     `json:"recordBatchSize,omitempty"`  // hailonet batch-size
	ConfidenceLimit   float32 `json:"confidenceLimit,omitempty"`  // detections below this are discarded
	ResourceStartDir  string  `json:"resourceStartDir,omitempty"` // where the .env search starts. Default: directory of the config file.
	EnablePreview     bool    `json:"enablePreview,omitempty"`    // show an on-screen preview window (needs a desktop)
}

// DefaultConfig is what you get when no config file exists: a single default
// camera at 720p.
func DefaultConfig() *Config {
	cfg := &Config{
		Cameras: []CameraConfig{{Name: "cam0"}},
	}
	cfg.applyDefaults("")
	return cfg
}

// LoadConfig reads a JSON config file and fills in defaults. A missing file
// is not an error; you get DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	} else if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	if len(cfg.Cameras) == 0 {
		cfg.Cameras = []CameraConfig{{Name: "cam0"}}
	}
	cfg.applyDefaults(filepath.Dir(filename))
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("Invalid config file %v: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults(configDir string) {
	if c.OutputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.OutputDir = filepath.Join(home, "Videos")
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = DefaultHTTPPort
	}
	if c.RecordBitrateKbps == 0 {
		c.RecordBitrateKbps = DefaultRecordBitrateKbps
	}
	if c.ConfidenceLimit == 0 {
		c.ConfidenceLimit = nn.DefaultConfidenceThreshold
	}
	if c.ResourceStartDir == "" {
		if configDir != "" {
			c.ResourceStartDir = configDir
		} else {
			c.ResourceStartDir = "."
		}
	}
	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if cam.Width == 0 {
			cam.Width = DefaultPreviewWidth
		}
		if cam.Height == 0 {
			cam.Height = DefaultPreviewHeight
		}
		if cam.FPS == 0 {
			cam.FPS = DefaultPreviewFPS
		}
	}
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for _, cam := range c.Cameras {
		if cam.Name == "" {
			return fmt.Errorf("Camera with empty name")
		}
		if seen[cam.Name] {
			return fmt.Errorf("Duplicate camera name '%v'", cam.Name)
		}
		seen[cam.Name] = true
	}
	return nil
}

// CameraByName returns the config of a camera, or nil.
func (c *Config) CameraByName(name string) *CameraConfig {
	for i := range c.Cameras {
		if c.Cameras[i].Name == name {
			return &c.Cameras[i]
		}
	}
	return nil
}
