package morph

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
)

// warpTriangle resamples one triangular region of src into dst under the
// affine map taking srcTri to dstTri, and composites it into dst with a
// feathered coverage mask so adjacent triangles meet without seams.
//
// Any geometry that cannot be warped safely -- a bounding rectangle with
// non-positive extent, or one reaching outside its image -- is skipped with
// no effect. A single bad triangle degrades the frame to a partial morph;
// it never aborts it.
func warpTriangle(src gocv.Mat, dst *gocv.Mat, srcTri, dstTri [3]landmarks.Point) {
	r1 := triangleBounds(srcTri)
	r2 := triangleBounds(dstTri)

	if r1.Dx() <= 0 || r1.Dy() <= 0 || r2.Dx() <= 0 || r2.Dy() <= 0 {
		return
	}
	if r1.Min.X < 0 || r1.Min.Y < 0 || r1.Max.X > src.Cols() || r1.Max.Y > src.Rows() {
		return
	}
	if r2.Min.X < 0 || r2.Min.Y < 0 || r2.Max.X > dst.Cols() || r2.Max.Y > dst.Rows() {
		return
	}

	// Translate both triangles into rectangle-local coordinates
	srcLocal := make([]gocv.Point2f, 3)
	dstLocal := make([]gocv.Point2f, 3)
	dstPoly := make([]image.Point, 3)
	for i := 0; i < 3; i++ {
		srcLocal[i] = gocv.Point2f{X: srcTri[i].X - float32(r1.Min.X), Y: srcTri[i].Y - float32(r1.Min.Y)}
		dstLocal[i] = gocv.Point2f{X: dstTri[i].X - float32(r2.Min.X), Y: dstTri[i].Y - float32(r2.Min.Y)}
		dstPoly[i] = image.Pt(int(dstLocal[i].X+0.5), int(dstLocal[i].Y+0.5))
	}

	srcPts := gocv.NewPoint2fVectorFromPoints(srcLocal)
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints(dstLocal)
	defer dstPts.Close()

	m := gocv.GetAffineTransform2f(srcPts, dstPts)
	defer m.Close()

	srcCrop := src.Region(r1)
	defer srcCrop.Close()

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffineWithParams(srcCrop, &warped, m, image.Pt(r2.Dx(), r2.Dy()),
		gocv.InterpolationLinear, gocv.BorderReflect101, color.RGBA{})

	// Coverage mask of the destination triangle, feathered by one pixel to
	// hide the seam shared with neighbouring triangles
	mask := gocv.NewMatWithSize(r2.Dy(), r2.Dx(), gocv.MatTypeCV8U)
	defer mask.Close()
	poly := gocv.NewPointsVectorFromPoints([][]image.Point{dstPoly})
	defer poly.Close()
	gocv.FillPoly(&mask, poly, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	gocv.GaussianBlur(mask, &mask, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	dstRegion := dst.Region(r2)
	defer dstRegion.Close()

	if warped.Rows() != dstRegion.Rows() || warped.Cols() != dstRegion.Cols() ||
		warped.Channels() != dstRegion.Channels() {
		return
	}

	out := blendWithMask(dstRegion, warped, mask)
	defer out.Close()
	out.CopyTo(&dstRegion)
}

// triangleBounds returns the integer bounding rectangle enclosing the
// triangle's vertices
func triangleBounds(tri [3]landmarks.Point) image.Rectangle {
	minX, minY := tri[0].X, tri[0].Y
	maxX, maxY := tri[0].X, tri[0].Y
	for _, p := range tri[1:] {
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
	return image.Rect(
		int(math.Floor(float64(minX))),
		int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX)))+1,
		int(math.Ceil(float64(maxY)))+1,
	)
}
