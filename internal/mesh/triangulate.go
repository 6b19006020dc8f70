// Package mesh computes the Delaunay triangulation a target's landmarks are
// warped through. The triangulation is built once per target and reused
// against every live landmark set of equal cardinality; topology is fixed to
// the target, never recomputed per frame.
package mesh

import (
	"fmt"

	"github.com/fogleman/delaunay"

	"github.com/dudu/morphcam/internal/landmarks"
)

// Triangle is a triple of landmark indices
type Triangle [3]int

// Triangulate computes a Delaunay triangulation over the landmark set and
// returns it as index triples into that set. The result is deterministic for
// identical input. Near-degenerate triangles at the hull boundary are kept;
// the warp stage skips them at render time. Input that admits no
// triangulation at all (fewer than 3 points, or all points collinear) is an
// error, which callers treat as a target construction failure.
func Triangulate(pts landmarks.Set) ([]Triangle, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("need at least 3 points, got %d", len(pts))
	}

	dpts := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		dpts[i] = delaunay.Point{X: float64(p.X), Y: float64(p.Y)}
	}

	tri, err := delaunay.Triangulate(dpts)
	if err != nil {
		return nil, fmt.Errorf("triangulation failed: %w", err)
	}
	if len(tri.Triangles) == 0 {
		return nil, fmt.Errorf("triangulation produced no triangles")
	}

	triangles := make([]Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		triangles = append(triangles, Triangle{
			tri.Triangles[i],
			tri.Triangles[i+1],
			tri.Triangles[i+2],
		})
	}
	return triangles, nil
}
