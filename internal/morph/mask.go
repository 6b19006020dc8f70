package morph

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
)

var maskWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// fillHull fills the convex hull of the points into mask. Fewer than 3
// usable points leaves the mask untouched.
func fillHull(mask *gocv.Mat, points []image.Point) {
	hull := landmarks.ConvexHull(points)
	if len(hull) < 3 {
		return
	}
	poly := gocv.NewPointsVectorFromPoints([][]image.Point{hull})
	defer poly.Close()
	gocv.FillPoly(mask, poly, maskWhite)
}

// dilateMask grows the mask with a rectangular kernel
func dilateMask(mask *gocv.Mat, kernelSize, iterations int) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()
	for i := 0; i < iterations; i++ {
		gocv.Dilate(*mask, mask, kernel)
	}
}

// faceMask fills the convex hull of every landmark point: full weight inside
// the face silhouette, zero outside
func faceMask(pts landmarks.Set, width, height int) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	fillHull(&mask, pts.ImagePoints())
	return mask
}

// eyesMask fills both eye hulls and dilates them so eyelids and lashes are
// fully covered even when tracking jitters
func eyesMask(pts landmarks.Set, width, height int) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	fillHull(&mask, pts.Select(landmarks.LeftEyeIndices()))
	fillHull(&mask, pts.Select(landmarks.RightEyeIndices()))
	dilateMask(&mask, 5, 2)
	return mask
}

// mouthMask fills the mouth/teeth hull with a smaller dilation
func mouthMask(pts landmarks.Set, width, height int) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	fillHull(&mask, pts.Select(landmarks.MouthIndices()))
	dilateMask(&mask, 3, 1)
	return mask
}

// compositeMask builds the feathered blend-weight mask for a face: the face
// hull minus the (dilated) eye and mouth regions, Gaussian-blurred so the
// silhouette boundary blends without a visible seam. Subtraction saturates
// at zero, so weights always stay in [0, 255].
func compositeMask(pts landmarks.Set, width, height int, excludeEyes, excludeMouth bool) gocv.Mat {
	mask := faceMask(pts, width, height)

	if excludeEyes {
		eyes := eyesMask(pts, width, height)
		gocv.Subtract(mask, eyes, &mask)
		eyes.Close()
	}
	if excludeMouth {
		mouth := mouthMask(pts, width, height)
		gocv.Subtract(mask, mouth, &mask)
		mouth.Close()
	}

	gocv.GaussianBlur(mask, &mask, image.Pt(21, 21), 11, 11, gocv.BorderDefault)
	return mask
}

// exclusionMask builds the hard, unfeathered override mask: aggressively
// dilated eye and mouth hulls. Pixels inside it are forced back to the
// unmodified live frame after blending, because tracking error in eyes and
// mouth is the most visually jarring failure mode.
func exclusionMask(pts landmarks.Set, width, height int, includeEyes, includeMouth bool) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)

	if includeEyes {
		fillHull(&mask, pts.Select(landmarks.LeftEyeIndices()))
		fillHull(&mask, pts.Select(landmarks.RightEyeIndices()))
	}
	if includeMouth {
		fillHull(&mask, pts.Select(landmarks.MouthIndices()))
	}

	dilateMask(&mask, 5, 2)
	return mask
}
