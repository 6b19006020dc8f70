package morph

import (
	"gocv.io/x/gocv"
)

// blendWithMask composites overlay over base weighted per pixel by a
// single-channel mask: out = base*(1-m) + overlay*m with m = mask/255.
// base and overlay are 8UC3, mask is 8UC1, all of identical dimensions.
// The returned Mat is owned by the caller.
func blendWithMask(base, overlay, mask gocv.Mat) gocv.Mat {
	rows, cols := base.Rows(), base.Cols()

	maskF := gocv.NewMat()
	defer maskF.Close()
	mask.ConvertToWithParams(&maskF, gocv.MatTypeCV32F, 1.0/255.0, 0)

	weight := gocv.NewMat()
	defer weight.Close()
	gocv.Merge([]gocv.Mat{maskF, maskF, maskF}, &weight)

	ones := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), rows, cols, gocv.MatTypeCV32FC3)
	defer ones.Close()

	invWeight := gocv.NewMat()
	defer invWeight.Close()
	gocv.Subtract(ones, weight, &invWeight)

	baseF := gocv.NewMat()
	defer baseF.Close()
	base.ConvertTo(&baseF, gocv.MatTypeCV32FC3)

	overlayF := gocv.NewMat()
	defer overlayF.Close()
	overlay.ConvertTo(&overlayF, gocv.MatTypeCV32FC3)

	gocv.Multiply(baseF, invWeight, &baseF)
	gocv.Multiply(overlayF, weight, &overlayF)
	gocv.Add(baseF, overlayF, &baseF)

	// ConvertTo saturates, clamping to the valid pixel range
	out := gocv.NewMat()
	baseF.ConvertTo(&out, gocv.MatTypeCV8UC3)
	return out
}
