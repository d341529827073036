package hailores

// Package hailores locates the resources that a Hailo YOLO detection
// pipeline needs at runtime:
//   1. The compiled model (a .hef file, consumed by the hailonet element)
//   2. The post-processing shared library (consumed by hailofilter)
//   3. The name of the post-processing function inside that library
//
// We look in a .env file first, and if that doesn't pan out, we scan the
// directories where the Hailo example projects install their resources.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/pihailo/pihailo/pkg/envfile"
)

// The .env keys that we recognize. Different generations of the example
// scripts used different names, so we accept all of them.
var hefKeys = []string{"HEF_PATH", "NETWORK_HEF", "HEF", "HAILO_HEF_PATH", "MODEL_HEF"}
var postprocessKeys = []string{"POSTPROCESS_SO", "YOLO_POSTPROCESS_SO", "HAILO_POSTPROCESS_SO"}
var functionKeys = []string{"POSTPROCESS_FUNCTION", "YOLO_POSTPROCESS_FUNCTION"}

// DefaultPostprocessFunction is the function that the stock YOLO
// post-process library exports for letterboxed inputs.
const DefaultPostprocessFunction = "filter_letterbox"

// Resources are the file paths that the detection pipeline needs.
type Resources struct {
	HEF                 string `json:"hef"`                 // Compiled neural network (Hailo Executable Format)
	PostprocessSO       string `json:"postprocessSO"`       // Shared library that decodes the network outputs into detections
	PostprocessFunction string `json:"postprocessFunction"` // Function name inside PostprocessSO
	EnvFile             string `json:"envFile,omitempty"`   // The .env file we used, or empty if we found the files by scanning
}

// FindEnvFile searches for a file named ".env", starting at startDir and
// walking up through parent directories.
func FindEnvFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("No .env file found in %v or any parent directory", startDir)
		}
		dir = parent
	}
}

// Discover finds the model and post-process library, preferring paths from a
// .env file (searched upward from startDir), and falling back to scanning
// the well-known Hailo resource directories.
// This either returns both files, or an error. There is no partial result.
func Discover(logger logs.Log, startDir string) (*Resources, error) {
	res, envErr := discoverFromEnv(logger, startDir)
	if envErr == nil {
		return res, nil
	}
	logger.Infof("Resource discovery via .env failed (%v), scanning well-known directories", envErr)

	res, scanErr := ScanWellKnownDirs(logger)
	if scanErr == nil {
		return res, nil
	}
	return nil, fmt.Errorf("Unable to locate Hailo detection resources. "+
		"Via .env: %v. Via resource directories: %v. "+
		"Check your .env file, or install the Hailo example resources", envErr, scanErr)
}

func discoverFromEnv(logger logs.Log, startDir string) (*Resources, error) {
	envPath, err := FindEnvFile(startDir)
	if err != nil {
		return nil, err
	}
	values, err := envfile.Load(envPath)
	if err != nil {
		return nil, fmt.Errorf("Failed to read %v: %w", envPath, err)
	}
	envDir := filepath.Dir(envPath)

	hef, ok := firstKey(values, hefKeys)
	if !ok {
		return nil, fmt.Errorf("%v has no model key (expected one of %v)", envPath, hefKeys)
	}
	so, ok := firstKey(values, postprocessKeys)
	if !ok {
		return nil, fmt.Errorf("%v has no post-process key (expected one of %v)", envPath, postprocessKeys)
	}
	function, ok := firstKey(values, functionKeys)
	if !ok {
		function = DefaultPostprocessFunction
	}

	hef = resolvePath(envDir, hef)
	so = resolvePath(envDir, so)

	if err := fileExists(hef); err != nil {
		return nil, fmt.Errorf("Model file from %v: %w", envPath, err)
	}
	if err := fileExists(so); err != nil {
		return nil, fmt.Errorf("Post-process library from %v: %w", envPath, err)
	}

	logger.Infof("Hailo resources from %v: hef=%v, so=%v, function=%v", envPath, hef, so, function)
	return &Resources{
		HEF:                 hef,
		PostprocessSO:       so,
		PostprocessFunction: function,
		EnvFile:             envPath,
	}, nil
}

// Return the first of 'keys' that is present and non-empty in 'values'
func firstKey(values map[string]string, keys []string) (string, bool) {
	for _, key := range keys {
		if v := values[key]; v != "" {
			return v, true
		}
	}
	return "", false
}

// Relative paths resolve against the directory holding the .env file
func resolvePath(envDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(envDir, path)
}

func fileExists(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%v is a directory, expected a file", path)
	}
	return nil
}
