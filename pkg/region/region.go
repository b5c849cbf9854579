package region

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// DefaultPadding is the number of pixels added around a drawn region.
const DefaultPadding = 5

// ErrInvalidRegion is returned when a region has no usable points.
var ErrInvalidRegion = errors.New("invalid region")

// Point is a pixel coordinate on the source image
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingBox is an axis-aligned box in image pixels.
// XMax and YMax are exclusive, matching image.Rectangle.
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Corners returns the top-left and bottom-right corners of the box
func (b BoundingBox) Corners() [2]Point {
	return [2]Point{{X: b.XMin, Y: b.YMin}, {X: b.XMax, Y: b.YMax}}
}

// Rect converts the box to an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool {
	return b.XMin >= b.XMax || b.YMin >= b.YMax
}

// Within reports whether the box lies inside an image of the given size
func (b BoundingBox) Within(width, height int) bool {
	return 0 <= b.XMin && b.XMin <= b.XMax && b.XMax <= width &&
		0 <= b.YMin && b.YMin <= b.YMax && b.YMax <= height
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Normalize converts a polygon into a padded bounding box clamped to the image.
// A single point yields a box of 2*padding around it.
func Normalize(points []Point, width, height, padding int) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: polygon has no points", ErrInvalidRegion)
	}
	if width < 0 || height < 0 {
		return BoundingBox{}, fmt.Errorf("%w: image size %dx%d", ErrInvalidRegion, width, height)
	}
	if padding < 0 {
		padding = 0
	}

	box := BoundingBox{
		XMin: points[0].X, YMin: points[0].Y,
		XMax: points[0].X, YMax: points[0].Y,
	}
	for _, p := range points[1:] {
		box.XMin = min(box.XMin, p.X)
		box.YMin = min(box.YMin, p.Y)
		box.XMax = max(box.XMax, p.X)
		box.YMax = max(box.YMax, p.Y)
	}

	box.XMin = clamp(subSat(box.XMin, padding), 0, width)
	box.YMin = clamp(subSat(box.YMin, padding), 0, height)
	box.XMax = clamp(addSat(box.XMax, padding), 0, width)
	box.YMax = clamp(addSat(box.YMax, padding), 0, height)

	return box, nil
}

// FromCorners builds a box from a flat [x_min, y_min, x_max, y_max] slice and
// clamps it to the image.
func FromCorners(coords []int, width, height int) (BoundingBox, error) {
	if len(coords) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected 4 coordinates, got %d", ErrInvalidRegion, len(coords))
	}
	points := []Point{{X: coords[0], Y: coords[1]}, {X: coords[2], Y: coords[3]}}
	return Normalize(points, width, height, 0)
}

// addSat adds a non-negative padding, stopping at math.MaxInt
func addSat(v, padding int) int {
	if v > math.MaxInt-padding {
		return math.MaxInt
	}
	return v + padding
}

// subSat subtracts a non-negative padding, stopping at math.MinInt
func subSat(v, padding int) int {
	if v < math.MinInt+padding {
		return math.MinInt
	}
	return v - padding
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
