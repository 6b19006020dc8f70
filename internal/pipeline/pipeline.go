package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/morph"
	"github.com/dudu/morphcam/internal/target"
)

// Config holds pipeline configuration
type Config struct {
	PreserveEyes  bool
	PreserveMouth bool
}

// Timing holds performance timing for the last processed frame
type Timing struct {
	Detection time.Duration
	Morph     time.Duration
	Total     time.Duration
	Faces     int
}

// Pipeline orchestrates the per-frame morph: landmark detection, warping and
// compositing, plus the target gallery and active-target selection
type Pipeline struct {
	config     Config
	source     LandmarkSource
	morpher    *morph.Morpher
	targets    []*target.Asset
	active     int
	lastTiming Timing
}

// New creates a pipeline over a landmark source and a pre-loaded target
// gallery. The first target becomes active.
func New(config Config, source LandmarkSource, targets []*target.Asset) (*Pipeline, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one target")
	}

	return &Pipeline{
		config:  config,
		source:  source,
		morpher: morph.New(targets[0]),
		targets: targets,
	}, nil
}

// Process morphs every face in the frame in place. The frame of one call is
// fully processed before the next begins; all per-frame buffers are owned by
// this call.
func (p *Pipeline) Process(frame *gocv.Mat, alpha float64) error {
	totalStart := time.Now()
	var timing Timing

	detectStart := time.Now()
	faces, err := p.source.Detect(*frame)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		return fmt.Errorf("landmark detection failed: %w", err)
	}
	timing.Faces = len(faces)

	if len(faces) > 0 {
		morphStart := time.Now()
		result := p.morpher.MorphFrame(*frame, faces, morph.Config{
			Alpha:         alpha,
			PreserveEyes:  p.config.PreserveEyes,
			PreserveMouth: p.config.PreserveMouth,
		})
		result.CopyTo(frame)
		result.Close()
		timing.Morph = time.Since(morphStart)
	}

	timing.Total = time.Since(totalStart)
	p.lastTiming = timing
	return nil
}

// Targets returns the loaded target gallery
func (p *Pipeline) Targets() []*target.Asset {
	return p.targets
}

// ActiveTarget returns the index of the active target
func (p *Pipeline) ActiveTarget() int {
	return p.active
}

// SelectTarget switches the active target. The asset was fully built at load
// time, so the swap is a single atomic publish; in-flight frames keep the
// snapshot they started with.
func (p *Pipeline) SelectTarget(index int) bool {
	if index < 0 || index >= len(p.targets) {
		return false
	}
	p.active = index
	p.morpher.SetTarget(p.targets[index])
	logrus.WithField("target", p.targets[index].Name).Info("switched target")
	return true
}

// LastTiming returns timing from the last Process call
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Close releases the landmark source and all targets
func (p *Pipeline) Close() error {
	var errs []error

	if p.source != nil {
		if err := p.source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, t := range p.targets {
		t.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
