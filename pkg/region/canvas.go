package region

import (
	"encoding/json"
	"fmt"
	"math"
)

// Canvas is the drawing canvas state posted by the browser.
// Only the fields needed to recover the drawn polygon are decoded.
type Canvas struct {
	Objects []CanvasObject `json:"objects"`
}

// CanvasObject is one drawn shape. Path holds commands such as
// ["M", x, y], ["L", x, y] and ["z"].
type CanvasObject struct {
	Type string              `json:"type"`
	Path [][]json.RawMessage `json:"path"`
}

// LastPolygon returns the points of the most recently drawn object.
func (c Canvas) LastPolygon() ([]Point, error) {
	if len(c.Objects) == 0 {
		return nil, fmt.Errorf("%w: canvas has no objects", ErrInvalidRegion)
	}
	last := c.Objects[len(c.Objects)-1]
	if last.Path == nil {
		return nil, fmt.Errorf("%w: last %q object has no path", ErrInvalidRegion, last.Type)
	}

	points := make([]Point, 0, len(last.Path))
	for i, cmd := range last.Path {
		// close-path commands carry no coordinates
		if len(cmd) < 3 {
			continue
		}
		x, err := coordinate(cmd[1])
		if err != nil {
			return nil, fmt.Errorf("%w: path[%d] x: %v", ErrInvalidRegion, i, err)
		}
		y, err := coordinate(cmd[2])
		if err != nil {
			return nil, fmt.Errorf("%w: path[%d] y: %v", ErrInvalidRegion, i, err)
		}
		points = append(points, Point{X: x, Y: y})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: path has no points", ErrInvalidRegion)
	}
	return points, nil
}

// ParseCanvas decodes canvas JSON and returns its last polygon
func ParseCanvas(data []byte) ([]Point, error) {
	var c Canvas
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode canvas: %v", ErrInvalidRegion, err)
	}
	return c.LastPolygon()
}

func coordinate(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite coordinate")
	}
	return int(math.Trunc(f)), nil
}
