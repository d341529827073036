package annotate

import (
	"image"
	"testing"

	"github.com/pihailo/pihailo/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestAnnotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 240))

	objects := []nn.ObjectDetection{
		{Class: nn.COCOPerson, Label: "person", Confidence: 0.87, Box: nn.Rect{X: 50, Y: 60, Width: 100, Height: 120}},
	}
	out := Annotate(src, objects)

	require.Equal(t, src.Bounds().Dx(), out.Bounds().Dx())
	require.Equal(t, src.Bounds().Dy(), out.Bounds().Dy())

	// The box edge must have been painted green. Sample the middle of the
	// top edge of the box.
	r, g, b, _ := out.At(100, 60).RGBA()
	require.Greater(t, g, r)
	require.Greater(t, g, b)

	// A pixel far from any box stays untouched (black)
	r, g, b, _ = out.At(300, 230).RGBA()
	require.Equal(t, uint32(0), r)
	require.Equal(t, uint32(0), g)
	require.Equal(t, uint32(0), b)
}

func TestAnnotateEmptyLabel(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	// Must not panic with a missing label or a box at the frame edge
	objects := []nn.ObjectDetection{
		{Class: nn.COCODog, Confidence: 0.5, Box: nn.Rect{X: 0, Y: 0, Width: 64, Height: 64}},
	}
	out := Annotate(src, objects)
	require.NotNil(t, out)
}
