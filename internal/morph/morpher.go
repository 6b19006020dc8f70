// Package morph implements the triangulation-based face morphing core: a
// target face is reshaped onto live landmark geometry triangle by triangle,
// then composited into the frame with feathered and hard-exclusion masks.
package morph

import (
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
	"github.com/dudu/morphcam/internal/target"
)

// Config is the only runtime configuration the morph core consumes
type Config struct {
	Alpha         float64 // blend factor, 0 = original frame, 1 = full morph
	PreserveEyes  bool
	PreserveMouth bool
}

// Morpher warps the current target onto live faces frame by frame. The held
// target is the only state that survives between calls; it is swapped as a
// whole via an atomic pointer so no frame ever observes a half-updated
// pairing of image and triangulation.
type Morpher struct {
	target atomic.Pointer[target.Asset]
}

// New creates a Morpher for the given target
func New(asset *target.Asset) *Morpher {
	m := &Morpher{}
	m.target.Store(asset)
	return m
}

// SetTarget publishes a new target. The asset must be fully constructed
// (triangulation included) before it is passed here.
func (m *Morpher) SetTarget(asset *target.Asset) {
	m.target.Store(asset)
}

// Target returns the currently held target
func (m *Morpher) Target() *target.Asset {
	return m.target.Load()
}

// MorphFrame morphs every detected face in the frame and returns the
// composited result as a new Mat owned by the caller. Faces are processed
// sequentially, each pass consuming the previous pass's output; with no
// faces the frame is returned unchanged (cloned).
func (m *Morpher) MorphFrame(frame gocv.Mat, faces []landmarks.Set, cfg Config) gocv.Mat {
	result := frame.Clone()
	for _, pts := range faces {
		next := m.morphFace(result, pts, cfg)
		result.Close()
		result = next
	}
	return result
}

// morphFace applies one target-to-face morph pass
func (m *Morpher) morphFace(frame gocv.Mat, pts landmarks.Set, cfg Config) gocv.Mat {
	tgt := m.target.Load()
	if tgt == nil || !pts.Complete() {
		return frame.Clone()
	}

	alpha := cfg.Alpha
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	width, height := frame.Cols(), frame.Rows()

	// Reshape the target's texture onto the live geometry, triangle by
	// triangle, into a zeroed buffer owned by this call
	warped := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	defer warped.Close()

	for _, tri := range tgt.Triangles {
		var srcTri, dstTri [3]landmarks.Point
		valid := true
		for i, idx := range tri {
			if idx < 0 || idx >= len(tgt.Points) || idx >= len(pts) {
				valid = false
				break
			}
			srcTri[i] = tgt.Points[idx]
			dstTri[i] = pts[idx]
		}
		if !valid {
			continue
		}
		warpTriangle(tgt.Image, &warped, srcTri, dstTri)
	}

	mask := compositeMask(pts, width, height, cfg.PreserveEyes, cfg.PreserveMouth)
	defer mask.Close()

	blend := gocv.NewMat()
	defer blend.Close()
	gocv.AddWeighted(frame, 1-alpha, warped, alpha, 0, &blend)

	result := blendWithMask(frame, blend, mask)

	if cfg.PreserveEyes || cfg.PreserveMouth {
		hard := exclusionMask(pts, width, height, cfg.PreserveEyes, cfg.PreserveMouth)
		defer hard.Close()
		final := blendWithMask(result, frame, hard)
		result.Close()
		result = final
	}

	return result
}
