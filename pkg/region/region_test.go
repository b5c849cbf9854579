package region

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		width    int
		height   int
		padding  int
		expected BoundingBox
	}{
		{
			name:     "single point",
			points:   []Point{{100, 100}},
			width:    200,
			height:   200,
			padding:  5,
			expected: BoundingBox{95, 95, 105, 105},
		},
		{
			name:     "polygon inside image",
			points:   []Point{{10, 20}, {50, 22}, {48, 60}, {12, 58}},
			width:    640,
			height:   480,
			padding:  5,
			expected: BoundingBox{5, 15, 55, 65},
		},
		{
			name:     "clamped at origin",
			points:   []Point{{2, 3}, {30, 40}},
			width:    100,
			height:   100,
			padding:  5,
			expected: BoundingBox{0, 0, 35, 45},
		},
		{
			name:     "clamped at far edge",
			points:   []Point{{90, 95}, {99, 99}},
			width:    100,
			height:   100,
			padding:  5,
			expected: BoundingBox{85, 90, 100, 100},
		},
		{
			name:     "point outside image collapses to edge",
			points:   []Point{{300, 300}},
			width:    200,
			height:   100,
			padding:  5,
			expected: BoundingBox{200, 100, 200, 100},
		},
		{
			name:     "zero padding",
			points:   []Point{{1, 2}, {3, 4}},
			width:    10,
			height:   10,
			padding:  0,
			expected: BoundingBox{1, 2, 3, 4},
		},
		{
			name:     "negative padding treated as zero",
			points:   []Point{{1, 2}, {3, 4}},
			width:    10,
			height:   10,
			padding:  -3,
			expected: BoundingBox{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, err := Normalize(tt.points, tt.width, tt.height, tt.padding)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if box != tt.expected {
				t.Errorf("Normalize() = %+v, want %+v", box, tt.expected)
			}
		})
	}
}

func TestNormalizeEmptyPolygon(t *testing.T) {
	_, err := Normalize(nil, 100, 100, DefaultPadding)
	if !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestNormalizeAlwaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		width := 1 + rng.Intn(500)
		height := 1 + rng.Intn(500)
		padding := rng.Intn(50)
		n := 1 + rng.Intn(8)
		points := make([]Point, n)
		for j := range points {
			points[j] = Point{X: rng.Intn(width*2) - width/2, Y: rng.Intn(height*2) - height/2}
		}

		box, err := Normalize(points, width, height, padding)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !box.Within(width, height) {
			t.Fatalf("box %+v escapes %dx%d image (points %v, padding %d)", box, width, height, points, padding)
		}
	}
}

func TestNormalizeExtremeCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		padding  int
		expected BoundingBox
	}{
		{
			name:     "max int x",
			points:   []Point{{math.MaxInt, 10}},
			padding:  5,
			expected: BoundingBox{200, 5, 200, 15},
		},
		{
			name:     "min int x",
			points:   []Point{{math.MinInt, 10}},
			padding:  5,
			expected: BoundingBox{0, 5, 0, 15},
		},
		{
			name:     "both extremes",
			points:   []Point{{math.MinInt, math.MaxInt}, {math.MaxInt, math.MinInt}},
			padding:  DefaultPadding,
			expected: BoundingBox{0, 0, 200, 200},
		},
		{
			name:     "huge padding",
			points:   []Point{{50, 50}},
			padding:  math.MaxInt,
			expected: BoundingBox{0, 0, 200, 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, err := Normalize(tt.points, 200, 200, tt.padding)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if box != tt.expected {
				t.Errorf("Normalize() = %+v, want %+v", box, tt.expected)
			}
			if !box.Within(200, 200) {
				t.Errorf("box %+v escapes the image", box)
			}
		})
	}
}

func TestBoundingBoxCorners(t *testing.T) {
	box := BoundingBox{10, 20, 50, 60}
	corners := box.Corners()
	if corners[0] != (Point{10, 20}) || corners[1] != (Point{50, 60}) {
		t.Errorf("Corners() = %v", corners)
	}
	if box.String() != "10,20,50,60" {
		t.Errorf("String() = %q", box.String())
	}
	if box.Empty() {
		t.Error("expected non-empty box")
	}
	if !(BoundingBox{5, 5, 5, 9}).Empty() {
		t.Error("expected zero-width box to be empty")
	}
}

func TestFromCorners(t *testing.T) {
	box, err := FromCorners([]int{-4, 10, 120, 30}, 100, 100)
	if err != nil {
		t.Fatalf("FromCorners() error = %v", err)
	}
	if box != (BoundingBox{0, 10, 100, 30}) {
		t.Errorf("FromCorners() = %+v", box)
	}

	if _, err := FromCorners([]int{1, 2, 3}, 100, 100); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
}
