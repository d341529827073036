package annotate

// Package annotate draws detection boxes onto a frame, for the snapshot API.
// The live preview gets its overlay from the hailooverlay element; this is
// only for stills that we serve ourselves.

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/pihailo/pihailo/pkg/nn"
)

// Annotate returns a copy of img with a box and "label confidence" text for
// each detection. Boxes are drawn in green with a 2 pixel stroke, like the
// overlays in the Hailo example apps.
func Annotate(img image.Image, objects []nn.ObjectDetection) image.Image {
	dc := gg.NewContextForImage(img)
	width := dc.Width()
	height := dc.Height()

	for _, obj := range objects {
		box := obj.Box
		dc.SetRGB(0, 1, 0)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.Width), float64(box.Height))
		dc.Stroke()

		label := obj.Label
		if label == "" {
			label = nn.COCOLabel(obj.Class)
		}
		text := fmt.Sprintf("%v %.2f", label, obj.Confidence)

		// Text goes just above the box, clamped into the frame
		tx := float64(clamp(box.X, 0, width-1))
		ty := float64(clamp(box.Y-4, 10, height-1))
		dc.DrawString(text, tx, ty)
	}

	return dc.Image()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
