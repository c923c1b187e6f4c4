package geometry

import "math"

// Point is a position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is an ordered list of points: a located box (4 corners) or a scan
// line (2 points).
type Path []Point

// Equal reports whether p and q hold the same points in the same order.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Scale multiplies every coordinate by f. Used to map geometry found on a
// half-sampled frame back onto the full frame.
func (p Path) Scale(f float64) Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X * f, Y: pt.Y * f}
	}
	return out
}

// Bounds returns the axis-aligned rectangle enclosing p, as 4 corners
// (top-left, top-right, bottom-right, bottom-left). It returns nil for an
// empty path.
func (p Path) Bounds() Path {
	if len(p) == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Path{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

// BoxAroundLine builds the box a 1D decoder matched, as the scan line
// padded by margin pixels on every side.
func BoxAroundLine(line Path, margin float64) Path {
	b := line.Bounds()
	if b == nil {
		return nil
	}
	return Path{
		{b[0].X - margin, b[0].Y - margin},
		{b[1].X + margin, b[1].Y - margin},
		{b[2].X + margin, b[2].Y + margin},
		{b[3].X - margin, b[3].Y + margin},
	}
}
