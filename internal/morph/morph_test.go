package morph

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
	"github.com/dudu/morphcam/internal/target"
)

// meshGrid lays a full 468-point set out as a 26x18 grid inside the given
// frame, leaving a margin so every hull stays well inside the image
func meshGrid(width, height, margin int) landmarks.Set {
	const cols, rows = 26, 18 // 26*18 == landmarks.MeshPoints

	stepX := float32(width-2*margin) / float32(cols-1)
	stepY := float32(height-2*margin) / float32(rows-1)

	pts := make(landmarks.Set, 0, landmarks.MeshPoints)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, landmarks.Point{
				X: float32(margin) + float32(c)*stepX,
				Y: float32(margin) + float32(r)*stepY,
			})
		}
	}
	return pts
}

func gradientMat(width, height int, offset int) gocv.Mat {
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetUCharAt(y, x*3+0, uint8((x+offset)%256))
			img.SetUCharAt(y, x*3+1, uint8((y+offset)%256))
			img.SetUCharAt(y, x*3+2, uint8((x+y+offset)%256))
		}
	}
	return img
}

func flatMat(width, height int, value float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0),
		height, width, gocv.MatTypeCV8UC3)
}

func newTestTarget(t *testing.T, img gocv.Mat, pts landmarks.Set) *target.Asset {
	t.Helper()
	asset, err := target.New("test", img, pts)
	if err != nil {
		t.Fatalf("failed to build test target: %v", err)
	}
	return asset
}

func vecEqual(a, b gocv.Vecb) bool {
	for c := 0; c < 3; c++ {
		if a[c] != b[c] {
			return false
		}
	}
	return true
}

// maxAbsDiff returns the largest per-channel absolute difference between two
// 8UC3 Mats
func maxAbsDiff(a, b gocv.Mat) int {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	maxVal := 0
	for y := 0; y < diff.Rows(); y++ {
		for x := 0; x < diff.Cols()*diff.Channels(); x++ {
			if v := int(diff.GetUCharAt(y, x)); v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal
}

func TestWarpTriangleOutOfBoundsIsNoop(t *testing.T) {
	src := gradientMat(50, 50, 0)
	defer src.Close()
	dst := flatMat(50, 50, 0)
	defer dst.Close()

	cases := map[string][2][3]landmarks.Point{
		"negative source": {
			{{X: -10, Y: 5}, {X: 20, Y: 5}, {X: 10, Y: 25}},
			{{X: 5, Y: 5}, {X: 20, Y: 5}, {X: 10, Y: 25}},
		},
		"destination past edge": {
			{{X: 5, Y: 5}, {X: 20, Y: 5}, {X: 10, Y: 25}},
			{{X: 30, Y: 30}, {X: 60, Y: 30}, {X: 45, Y: 49}},
		},
	}

	for name, tris := range cases {
		warpTriangle(src, &dst, tris[0], tris[1])
		if sum := dst.Sum(); sum.Val1 != 0 || sum.Val2 != 0 || sum.Val3 != 0 {
			t.Errorf("%s: destination was modified", name)
		}
	}
}

func TestWarpTriangleDegenerateDoesNotPanic(t *testing.T) {
	src := gradientMat(50, 50, 0)
	defer src.Close()
	dst := flatMat(50, 50, 0)
	defer dst.Close()

	collinear := [3]landmarks.Point{{X: 5, Y: 10}, {X: 20, Y: 10}, {X: 35, Y: 10}}
	warpTriangle(src, &dst, collinear, collinear)

	duplicate := [3]landmarks.Point{{X: 5, Y: 10}, {X: 5, Y: 10}, {X: 5, Y: 10}}
	warpTriangle(src, &dst, duplicate, duplicate)
}

func TestWarpTriangleChannelMismatchIsNoop(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 0, 0, 0), 50, 50, gocv.MatTypeCV8U)
	defer src.Close()
	dst := flatMat(50, 50, 0)
	defer dst.Close()

	tri := [3]landmarks.Point{{X: 5, Y: 5}, {X: 40, Y: 8}, {X: 20, Y: 40}}
	warpTriangle(src, &dst, tri, tri)

	if sum := dst.Sum(); sum.Val1 != 0 || sum.Val2 != 0 || sum.Val3 != 0 {
		t.Error("single-channel source leaked into the destination")
	}
}

func TestWarpTriangleCoversFractionalEdge(t *testing.T) {
	src := flatMat(60, 60, 240)
	defer src.Close()
	dst := flatMat(60, 60, 0)
	defer dst.Close()

	// Right edge sits at x=40.6; the column at x=41 is inside the rounded
	// polygon and must receive near-full coverage
	tri := [3]landmarks.Point{{X: 10.5, Y: 10}, {X: 40.6, Y: 10}, {X: 40.6, Y: 40}}
	warpTriangle(src, &dst, tri, tri)

	if got := dst.GetVecbAt(20, 41)[0]; got < 200 {
		t.Errorf("coverage mask misses the triangle's right edge, got %d", got)
	}
}

func TestWarpTriangleIdentity(t *testing.T) {
	src := gradientMat(60, 60, 0)
	defer src.Close()
	dst := flatMat(60, 60, 0)
	defer dst.Close()

	tri := [3]landmarks.Point{{X: 10, Y: 10}, {X: 50, Y: 12}, {X: 28, Y: 50}}
	warpTriangle(src, &dst, tri, tri)

	// Deep inside the triangle the source must come through unchanged
	cx, cy := 29, 24
	want := src.GetVecbAt(cy, cx)
	got := dst.GetVecbAt(cy, cx)
	for c := 0; c < 3; c++ {
		if d := int(got[c]) - int(want[c]); d > 1 || d < -1 {
			t.Fatalf("channel %d: got %d, want %d", c, got[c], want[c])
		}
	}
}

func TestMorphAlphaZeroReproducesFrame(t *testing.T) {
	const w, h = 200, 200
	pts := meshGrid(w, h, 40)

	asset := newTestTarget(t, gradientMat(w, h, 100), pts)
	defer asset.Close()
	m := New(asset)

	frame := gradientMat(w, h, 0)
	defer frame.Close()

	out := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: 0})
	defer out.Close()

	if d := maxAbsDiff(frame, out); d > 1 {
		t.Errorf("alpha=0 changed the frame by up to %d", d)
	}
}

func TestMorphAlphaMonotonic(t *testing.T) {
	const w, h = 200, 200
	pts := meshGrid(w, h, 40)

	asset := newTestTarget(t, flatMat(w, h, 200), pts)
	defer asset.Close()
	m := New(asset)

	frame := flatMat(w, h, 0)
	defer frame.Close()

	value := func(alpha float64) int {
		out := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: alpha})
		defer out.Close()
		return int(out.GetVecbAt(h/2, w/2)[0])
	}

	v0 := value(0)
	vHalf := value(0.5)
	v1 := value(1)

	if !(v0 < vHalf && vHalf < v1) {
		t.Errorf("expected monotonic values, got %d, %d, %d", v0, vHalf, v1)
	}
	if v1 < 195 {
		t.Errorf("alpha=1 should reach the target value, got %d", v1)
	}
	if vHalf < 90 || vHalf > 110 {
		t.Errorf("alpha=0.5 should sit near the midpoint, got %d", vHalf)
	}
}

func TestMorphSelfIdentity(t *testing.T) {
	const w, h = 200, 200
	pts := meshGrid(w, h, 40)

	targetImg := gradientMat(w, h, 77)
	asset := newTestTarget(t, targetImg, pts)
	defer asset.Close()
	m := New(asset)

	frame := gradientMat(w, h, 0)
	defer frame.Close()

	// Feeding the target's own landmarks back as the live set with alpha=1
	// must reproduce the target inside the face hull
	out := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: 1})
	defer out.Close()

	for _, p := range [][2]int{{w / 2, h / 2}, {70, 80}, {130, 110}} {
		got := out.GetVecbAt(p[1], p[0])
		want := asset.Image.GetVecbAt(p[1], p[0])
		for c := 0; c < 3; c++ {
			if d := int(got[c]) - int(want[c]); d > 2 || d < -2 {
				t.Errorf("pixel (%d,%d) channel %d: got %d, want %d", p[0], p[1], c, got[c], want[c])
			}
		}
	}

	// Far outside the hull the frame passes through untouched
	got := out.GetVecbAt(5, 5)
	want := frame.GetVecbAt(5, 5)
	if !vecEqual(got, want) {
		t.Errorf("pixel outside the face hull changed: got %v, want %v", got, want)
	}
}

func TestMorphPreservationIsExact(t *testing.T) {
	const w, h = 200, 200
	pts := meshGrid(w, h, 40)

	asset := newTestTarget(t, flatMat(w, h, 250), pts)
	defer asset.Close()
	m := New(asset)

	frame := gradientMat(w, h, 0)
	defer frame.Close()

	out := m.MorphFrame(frame, []landmarks.Set{pts},
		Config{Alpha: 1, PreserveEyes: true, PreserveMouth: true})
	defer out.Close()

	hard := exclusionMask(pts, w, h, true, true)
	defer hard.Close()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if hard.GetUCharAt(y, x) != 255 {
				continue
			}
			if !vecEqual(out.GetVecbAt(y, x), frame.GetVecbAt(y, x)) {
				t.Fatalf("pixel (%d,%d) inside the exclusion mask was modified", x, y)
			}
		}
	}
}

func TestMorphEmptyLandmarksIsNoop(t *testing.T) {
	const w, h = 80, 80
	pts := meshGrid(w, h, 10)

	asset := newTestTarget(t, gradientMat(w, h, 50), pts)
	defer asset.Close()
	m := New(asset)

	frame := gradientMat(w, h, 0)
	defer frame.Close()

	for name, faces := range map[string][]landmarks.Set{
		"no faces":       nil,
		"empty set":      {landmarks.Set{}},
		"incomplete set": {pts[:17]},
	} {
		out := m.MorphFrame(frame, faces, Config{Alpha: 1})
		if d := maxAbsDiff(frame, out); d != 0 {
			t.Errorf("%s: frame changed by up to %d", name, d)
		}
		out.Close()
	}
}

func TestMorphWithoutTargetIsNoop(t *testing.T) {
	const w, h = 80, 80
	pts := meshGrid(w, h, 10)

	m := New(nil)

	frame := gradientMat(w, h, 0)
	defer frame.Close()

	out := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: 1})
	defer out.Close()
	if d := maxAbsDiff(frame, out); d != 0 {
		t.Errorf("frame changed by up to %d without a target", d)
	}
}

func TestMorphTargetSwap(t *testing.T) {
	const w, h = 120, 120
	pts := meshGrid(w, h, 25)

	dark := newTestTarget(t, flatMat(w, h, 60), pts)
	defer dark.Close()
	bright := newTestTarget(t, flatMat(w, h, 220), pts)
	defer bright.Close()

	m := New(dark)
	frame := flatMat(w, h, 0)
	defer frame.Close()

	center := func(out gocv.Mat) int { return int(out.GetVecbAt(h/2, w/2)[0]) }

	first := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: 1})
	v1 := center(first)
	first.Close()

	m.SetTarget(bright)
	second := m.MorphFrame(frame, []landmarks.Set{pts}, Config{Alpha: 1})
	v2 := center(second)
	second.Close()

	if v1 > 70 || v2 < 210 {
		t.Errorf("target swap not observed: before=%d after=%d", v1, v2)
	}
	if m.Target() != bright {
		t.Error("Target() does not return the swapped asset")
	}
}
