package detect

// Parsing of the JSON lines that the pipeline's hailoexportfile element
// writes. Each line is one frame's region-of-interest tree; detections are
// sub-objects with a normalized bounding box, a label, and a confidence.

import (
	"encoding/json"
	"time"

	"github.com/pihailo/pihailo/pkg/nn"
)

type exportBBox struct {
	XMin   float32 `json:"xmin"`
	YMin   float32 `json:"ymin"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type exportDetection struct {
	BBox       exportBBox `json:"HailoBBox"`
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
}

type exportSubObject struct {
	Detection *exportDetection `json:"HailoDetection"`
}

type exportROI struct {
	SubObjects []exportSubObject `json:"SubObjects"`
}

type exportLine struct {
	TimestampMS int64     `json:"timestamp (ms)"`
	StreamID    string    `json:"stream_id"`
	ROI         exportROI `json:"HailoROI"`
}

// ParseExportLine decodes one hailoexportfile JSON line into a
// DetectionResult with pixel-space boxes.
func ParseExportLine(line []byte, camera string, frameID int64, imageWidth, imageHeight int) (*nn.DetectionResult, error) {
	parsed := exportLine{}
	if err := json.Unmarshal(line, &parsed); err != nil {
		return nil, err
	}

	result := &nn.DetectionResult{
		Camera:      camera,
		FrameID:     frameID,
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
		Objects:     []nn.ObjectDetection{},
		FramePTS:    time.Now(),
	}
	for _, sub := range parsed.ROI.SubObjects {
		if sub.Detection == nil {
			continue
		}
		det := sub.Detection
		result.Objects = append(result.Objects, nn.ObjectDetection{
			Class:      nn.COCOClassIndex(det.Label),
			Label:      det.Label,
			Confidence: det.Confidence,
			Box:        nn.BoxFromNormalized(det.BBox.XMin, det.BBox.YMin, det.BBox.Width, det.BBox.Height, imageWidth, imageHeight),
		})
	}
	return result, nil
}
