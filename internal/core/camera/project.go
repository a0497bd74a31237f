package camera

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a position in world space.
type Point struct {
	X, Y, Z float32
}

// minClipW rejects points on or behind the camera plane.
const minClipW = 1e-3

// WorldToScreen projects p through the view-projection matrix m onto a
// width x height viewport whose origin is the top-left corner. ok is false
// when p lies behind the camera or the viewport is empty. Points outside the
// viewport still project; callers clip with OnScreen.
func WorldToScreen(m Matrix, p Point, width, height float32) (x, y float32, ok bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	clip := m.Transform(p.X, p.Y, p.Z)
	w := clip[3]
	if !(w > minClipW) {
		return 0, 0, false
	}
	ndcX, ndcY := clip[0]/w, clip[1]/w
	x = (ndcX + 1) * 0.5 * width
	y = (1 - ndcY) * 0.5 * height
	return x, y, true
}

// OnScreen reports whether (x, y) falls inside a width x height viewport.
func OnScreen(x, y, width, height float32) bool {
	return x >= 0 && y >= 0 && x < width && y < height
}

// ParsePoint parses "x,y,z".
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Point{}, fmt.Errorf("point %q: want x,y,z", s)
	}
	var v [3]float32
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return Point{}, fmt.Errorf("point %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return Point{X: v[0], Y: v[1], Z: v[2]}, nil
}
