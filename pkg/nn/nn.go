package nn

// Package nn holds the object detection types that the rest of the system
// passes around. Inference itself happens inside the GStreamer pipeline
// (hailonet + the post-process library); by the time results reach Go code
// they are already decoded detections with normalized boxes.

import (
	"time"

	"github.com/chewxy/math32"
)

// DefaultConfidenceThreshold is what we use when the config doesn't specify one.
const DefaultConfidenceThreshold = 0.30

// A single detected object
type ObjectDetection struct {
	Class      int     `json:"class"`      // COCO class index
	Label      string  `json:"label"`      // Human readable class name
	Confidence float32 `json:"confidence"` // 0..1
	Box        Rect    `json:"box"`        // Pixel coordinates in the source frame
}

// Results of an object detection run on one frame
type DetectionResult struct {
	Camera      string            `json:"camera"`
	FrameID     int64             `json:"frameID"`
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Objects     []ObjectDetection `json:"objects"`
	FramePTS    time.Time         `json:"framePTS"`
}

// BoxFromNormalized converts a normalized [0..1] box (as produced by the
// Hailo post-process) into pixel coordinates, clipped to the image.
func BoxFromNormalized(xmin, ymin, width, height float32, imageWidth, imageHeight int) Rect {
	x1 := int(math32.Max(0, xmin) * float32(imageWidth))
	y1 := int(math32.Max(0, ymin) * float32(imageHeight))
	x2 := int(math32.Min(1, xmin+width) * float32(imageWidth))
	y2 := int(math32.Min(1, ymin+height) * float32(imageHeight))
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// FilterConfidence returns the objects whose confidence is at least threshold.
// If threshold is zero, the default is used.
func FilterConfidence(objects []ObjectDetection, threshold float32) []ObjectDetection {
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	keep := []ObjectDetection{}
	for _, obj := range objects {
		if obj.Confidence >= threshold {
			keep = append(keep, obj)
		}
	}
	return keep
}
