package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
)

// LandmarkSource produces one complete landmark set per detected face per
// frame, in frame pixel coordinates. Index i of every set refers to the same
// anatomical location as index i of a target's stored set. The morph core
// consumes this as a black box.
type LandmarkSource interface {
	Detect(img gocv.Mat) ([]landmarks.Set, error)
	Close() error
}
