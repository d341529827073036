package gst

import (
	"fmt"

	"github.com/pihailo/pihailo/pkg/shell"
)

// Install hints for elements that commonly go missing. Anything not listed
// here gets the generic plugins hint.
var installHints = map[string]string{
	"libcamerasrc":    "sudo apt install -y gstreamer1.0-libcamera",
	"x264enc":         "sudo apt install -y gstreamer1.0-plugins-ugly",
	"avenc_h264":      "sudo apt install -y gstreamer1.0-libav",
	"hailonet":        "install hailo-all (see hailo-rpi5-examples install.sh)",
	"hailofilter":     "install hailo-all (see hailo-rpi5-examples install.sh)",
	"hailooverlay":    "install hailo-all (see hailo-rpi5-examples install.sh)",
	"hailocropper":    "install hailo-all (see hailo-rpi5-examples install.sh)",
	"hailoaggregator": "install hailo-all (see hailo-rpi5-examples install.sh)",
	"hailoexportfile": "install hailo-all (see hailo-rpi5-examples install.sh)",
}

const genericPluginsHint = "sudo apt install -y gstreamer1.0-plugins-good gstreamer1.0-plugins-bad gstreamer1.0-plugins-ugly gstreamer1.0-libav"

// InstallHint returns the install command for a missing element.
func InstallHint(element string) string {
	if hint, ok := installHints[element]; ok {
		return hint
	}
	return genericPluginsHint
}

// Inspect verifies that a GStreamer element is available, via
// "gst-inspect-1.0 --exists". The returned error includes an install hint.
func Inspect(element string) error {
	if _, err := shell.Run("gst-inspect-1.0", "--exists", element); err != nil {
		return fmt.Errorf("Missing GStreamer element '%v'. Install it with: %v", element, InstallHint(element))
	}
	return nil
}
