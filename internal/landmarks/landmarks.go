package landmarks

import (
	"image"
	"math"
)

// MeshPoints is the fixed cardinality of every landmark set. Index i refers
// to the same anatomical location in every set, whether it came from a live
// detection or a target's sidecar file.
const MeshPoints = 468

// Point represents a 2D point in pixel space
type Point struct {
	X, Y float32
}

// Set is an ordered sequence of facial landmark points. A complete set has
// exactly MeshPoints entries.
type Set []Point

// Complete reports whether the set carries the full mesh
func (s Set) Complete() bool {
	return len(s) == MeshPoints
}

// FromNormalized converts detector-normalized coordinates (0..1) into a
// pixel-space set for a frame of the given size
func FromNormalized(norm []Point, width, height int) Set {
	pts := make(Set, len(norm))
	for i, p := range norm {
		pts[i] = Point{
			X: p.X * float32(width),
			Y: p.Y * float32(height),
		}
	}
	return pts
}

// ImagePoints returns all points of the set as integer image points
func (s Set) ImagePoints() []image.Point {
	result := make([]image.Point, len(s))
	for i, p := range s {
		result[i] = image.Pt(int(p.X), int(p.Y))
	}
	return result
}

// Select returns the points at the given indices as integer image points.
// Indices outside the set are dropped rather than failing, so a short set
// degrades to a smaller region instead of a crash.
func (s Set) Select(indices []int) []image.Point {
	result := make([]image.Point, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(s) {
			result = append(result, image.Pt(int(s[idx].X), int(s[idx].Y)))
		}
	}
	return result
}

// Bounds computes the tight bounding box around all points
func (s Set) Bounds() image.Rectangle {
	if len(s) == 0 {
		return image.Rectangle{}
	}
	minX, minY := s[0].X, s[0].Y
	maxX, maxY := s[0].X, s[0].Y
	for _, p := range s[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(int(minX), int(minY), int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))))
}

// LeftEyeIndices returns the mesh indices outlining the left eye
func LeftEyeIndices() []int {
	return []int{
		33, 7, 163, 144, 145, 153, 154, 155, 133,
		173, 157, 158, 159, 160, 161, 246,
	}
}

// RightEyeIndices returns the mesh indices outlining the right eye
func RightEyeIndices() []int {
	return []int{
		362, 382, 381, 380, 374, 373, 390, 249,
		263, 466, 388, 387, 386, 385, 384, 398,
	}
}

// MouthIndices returns the mesh indices outlining the inner mouth and teeth
func MouthIndices() []int {
	return []int{
		78, 191, 80, 81, 82, 13, 312, 311, 310, 415, 308,
		95, 88, 178, 87, 14, 317, 402, 318, 324, 308,
	}
}

// ConvexHull computes the convex hull of the given points using gift
// wrapping. The hull is returned in traversal order, ready for polygon fill.
// Fewer than 3 points are returned as-is.
func ConvexHull(points []image.Point) []image.Point {
	if len(points) < 3 {
		return points
	}

	minIdx := 0
	for i := 1; i < len(points); i++ {
		if points[i].X < points[minIdx].X {
			minIdx = i
		}
	}

	hull := []image.Point{}
	p := minIdx
	for {
		hull = append(hull, points[p])
		q := (p + 1) % len(points)
		for i := 0; i < len(points); i++ {
			if orientation(points[p], points[i], points[q]) == 2 {
				q = i
			}
		}
		p = q
		if p == minIdx || len(hull) > len(points) {
			break
		}
	}

	return hull
}

// orientation returns:
// 0 -> Collinear, 1 -> Clockwise, 2 -> Counterclockwise
func orientation(p, q, r image.Point) int {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	if val == 0 {
		return 0
	}
	if val > 0 {
		return 1
	}
	return 2
}
