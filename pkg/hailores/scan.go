package hailores

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/logs"
)

// HEF files we pick first, if present. These are the detection models that
// ship with the Hailo Raspberry Pi examples. The list matters because the
// resource directories also contain pose/segmentation/depth models, and
// feeding one of those to a detection post-process yields garbage.
var preferredHEFs = []string{
	"yolov8s_h8l.hef",
	"yolov8n_h8l.hef",
	"yolov8m_h8l.hef",
	"yolov6n.hef",
	"yolov6s.hef",
	"yolov8s.hef",
	"yolov8n.hef",
}

// WellKnownDirs returns the directories that the Hailo example installers
// put resources into, in scan order.
func WellKnownDirs() []string {
	dirs := []string{}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, "hailo-rpi5-examples", "resources"))
	}
	dirs = append(dirs,
		"/usr/local/hailo/resources/models/hailo8l",
		"/usr/local/hailo/resources/so",
		"/usr/lib/aarch64-linux-gnu/hailo/tappas/post_processes",
	)
	return dirs
}

// ScanWellKnownDirs searches the standard Hailo resource directories for a
// detection .hef and a YOLO post-process .so.
func ScanWellKnownDirs(logger logs.Log) (*Resources, error) {
	return scanDirs(logger, WellKnownDirs())
}

func scanDirs(logger logs.Log, dirs []string) (*Resources, error) {
	var hefs, sos []string
	for _, dir := range dirs {
		h, _ := filepath.Glob(filepath.Join(dir, "*.hef"))
		hefs = append(hefs, h...)
		s, _ := filepath.Glob(filepath.Join(dir, "lib*postprocess*.so"))
		sos = append(sos, s...)
	}
	sort.Strings(hefs)
	sort.Strings(sos)

	hef := pickHEF(hefs)
	so := pickPostprocess(sos)
	if hef == "" || so == "" {
		return nil, fmt.Errorf("Scanned %v: found %v .hef file(s) and %v post-process .so file(s), need one of each",
			strings.Join(dirs, ", "), len(hefs), len(sos))
	}

	logger.Infof("Hailo resources from directory scan: hef=%v, so=%v", hef, so)
	return &Resources{
		HEF:                 hef,
		PostprocessSO:       so,
		PostprocessFunction: DefaultPostprocessFunction,
	}, nil
}

// Pick the best detection model out of 'hefs':
// 1. A preferred name
// 2. Any "yolo" name that isn't a pose/segmentation/depth model
// 3. The first file
func pickHEF(hefs []string) string {
	for _, preferred := range preferredHEFs {
		for _, hef := range hefs {
			if filepath.Base(hef) == preferred {
				return hef
			}
		}
	}
	for _, hef := range hefs {
		name := strings.ToLower(filepath.Base(hef))
		if strings.Contains(name, "yolo") &&
			!strings.Contains(name, "pose") &&
			!strings.Contains(name, "seg") &&
			!strings.Contains(name, "depth") {
			return hef
		}
	}
	if len(hefs) != 0 {
		return hefs[0]
	}
	return ""
}

// Prefer a post-process library with "yolo" in its name
func pickPostprocess(sos []string) string {
	for _, so := range sos {
		if strings.Contains(strings.ToLower(filepath.Base(so)), "yolo") {
			return so
		}
	}
	if len(sos) != 0 {
		return sos[0]
	}
	return ""
}
