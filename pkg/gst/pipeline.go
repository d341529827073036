package gst

// Package gst builds gst-launch-1.0 pipeline descriptions for the Hailo
// detection pipeline, and checks that the elements we need are installed.
// We run pipelines as gst-launch-1.0 subprocesses; nothing in this package
// links against GStreamer.

import (
	"fmt"
	"strings"
)

// Queue returns a named queue with the settings the Hailo examples use
// everywhere: non-leaky, at most maxBuffers buffers, no byte/time limits.
func Queue(name string, maxBuffers int) string {
	return fmt.Sprintf("queue name=%v leaky=no max-size-buffers=%v max-size-bytes=0 max-size-time=0", name, maxBuffers)
}

// Quote a property value for a pipeline description. gst-launch only needs
// quoting for values with spaces or special characters, but quoting paths
// unconditionally is harmless and matches the example pipelines.
func Quote(v string) string {
	return `"` + v + `"`
}

// chain joins pipeline stages with the link operator
func chain(stages ...string) string {
	return strings.Join(stages, " ! ")
}
