// Package detector provides the live landmark source: a face-mesh ONNX model
// that regresses a fixed 468-point landmark set per face per frame. The
// morph core treats this as a black box behind pipeline.LandmarkSource; any
// provider of complete landmark sets can replace it.
package detector

import (
	"fmt"
	"image"
	"math"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/inference"
	"github.com/dudu/morphcam/internal/landmarks"
)

const (
	meshInputSize = 192
	meshOutputLen = landmarks.MeshPoints * 3 // x, y, z per point
	roiExpansion  = 1.5
)

// FaceMesh regresses 468 facial landmarks with a MediaPipe-style face mesh
// model (NHWC 1x192x192x3 input in [-1, 1]; outputs: 1404 crop-space
// coordinates and a face-presence logit).
//
// The model itself has no detection stage, so the region of interest is
// tracked frame to frame: the previous frame's landmarks define the next
// crop, and a low presence score drops back to a full-frame attempt.
type FaceMesh struct {
	session        *inference.Session
	scoreThreshold float32
	tracked        landmarks.Set // previous frame's landmarks, nil when lost
}

// NewFaceMesh creates a face mesh landmark source from an ONNX model
func NewFaceMesh(modelPath string, scoreThreshold float32) (*FaceMesh, error) {
	inputNames := []string{"input_1"}
	outputNames := []string{"conv2d_21", "conv2d_31"}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create face mesh session: %w", err)
	}

	return &FaceMesh{
		session:        session,
		scoreThreshold: scoreThreshold,
	}, nil
}

// Detect returns the landmark sets of the faces found in the frame, in frame
// pixel coordinates. No detected face yields an empty result, not an error.
func (f *FaceMesh) Detect(img gocv.Mat) ([]landmarks.Set, error) {
	roi := f.fullFrameROI(img)
	usedTracking := false
	if f.tracked != nil {
		roi = f.trackedROI(img)
		usedTracking = true
	}

	pts, score, err := f.regress(img, roi)
	if err != nil {
		return nil, err
	}

	if score < f.scoreThreshold && usedTracking {
		// Tracking drifted off the face, retry from scratch
		pts, score, err = f.regress(img, f.fullFrameROI(img))
		if err != nil {
			return nil, err
		}
	}

	if score < f.scoreThreshold {
		if f.tracked != nil {
			logrus.WithField("score", score).Debug("face lost")
		}
		f.tracked = nil
		return nil, nil
	}

	f.tracked = pts
	return []landmarks.Set{pts}, nil
}

// regress runs the mesh model over one square ROI of the frame and maps the
// resulting landmarks back into frame coordinates
func (f *FaceMesh) regress(img gocv.Mat, roi image.Rectangle) (landmarks.Set, float32, error) {
	crop := img.Region(roi)
	defer crop.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(crop, &resized, image.Pt(meshInputSize, meshInputSize), 0, 0, gocv.InterpolationLinear)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)

	// Normalize to [-1, 1]; a 32FC3 Mat is already in the HWC layout the
	// model's NHWC input expects
	floatMat := gocv.NewMat()
	defer floatMat.Close()
	rgb.ConvertToWithParams(&floatMat, gocv.MatTypeCV32FC3, 1.0/127.5, -1.0)

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, meshInputSize, meshInputSize, 3),
		bytesToFloat32(floatMat.ToBytes()),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	coordsTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 1, 1, meshOutputLen})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create coords tensor: %w", err)
	}
	defer coordsTensor.Destroy()

	scoreTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 1, 1, 1})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create score tensor: %w", err)
	}
	defer scoreTensor.Destroy()

	err = f.session.Run([]ort.Value{inputTensor}, []ort.Value{coordsTensor, scoreTensor})
	if err != nil {
		return nil, 0, fmt.Errorf("face mesh inference failed: %w", err)
	}

	coords := coordsTensor.GetData()
	score := sigmoid(scoreTensor.GetData()[0])

	scaleX := float32(roi.Dx()) / meshInputSize
	scaleY := float32(roi.Dy()) / meshInputSize

	pts := make(landmarks.Set, landmarks.MeshPoints)
	for i := 0; i < landmarks.MeshPoints; i++ {
		pts[i] = landmarks.Point{
			X: coords[i*3]*scaleX + float32(roi.Min.X),
			Y: coords[i*3+1]*scaleY + float32(roi.Min.Y),
		}
	}

	return pts, score, nil
}

// trackedROI builds the next crop from the previous frame's landmarks,
// expanded to a square so the whole face stays inside it
func (f *FaceMesh) trackedROI(img gocv.Mat) image.Rectangle {
	b := f.tracked.Bounds()

	side := b.Dx()
	if b.Dy() > side {
		side = b.Dy()
	}
	side = int(float64(side) * roiExpansion)

	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2

	roi := image.Rect(cx-side/2, cy-side/2, cx+side/2, cy+side/2)
	roi = roi.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if roi.Dx() < meshInputSize/2 || roi.Dy() < meshInputSize/2 {
		return f.fullFrameROI(img)
	}
	return roi
}

// fullFrameROI is the centered square covering as much of the frame as fits
func (f *FaceMesh) fullFrameROI(img gocv.Mat) image.Rectangle {
	w, h := img.Cols(), img.Rows()
	side := w
	if h < side {
		side = h
	}
	x0 := (w - side) / 2
	y0 := (h - side) / 2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// Close releases detector resources
func (f *FaceMesh) Close() error {
	return f.session.Destroy()
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
