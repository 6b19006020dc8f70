// Package recorder writes the morphed output stream to disk. Recording is
// video-only; files carry the _no_audio suffix to make that explicit.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Recorder writes frames to a timestamped MP4 file
type Recorder struct {
	outputDir string
	fps       float64
	writer    *gocv.VideoWriter
	path      string
}

// New creates a recorder that saves into outputDir
func New(outputDir string, fps float64) *Recorder {
	return &Recorder{
		outputDir: outputDir,
		fps:       fps,
	}
}

// Recording reports whether a recording is in progress
func (r *Recorder) Recording() bool {
	return r.writer != nil
}

// Start begins a new recording for frames of the given size
func (r *Recorder) Start(width, height int) error {
	if r.writer != nil {
		return fmt.Errorf("already recording")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	name := fmt.Sprintf("morph_%s_no_audio.mp4", time.Now().Format("20060102_150405"))
	path := filepath.Join(r.outputDir, name)

	writer, err := gocv.VideoWriterFile(path, "mp4v", r.fps, width, height, true)
	if err != nil {
		return fmt.Errorf("failed to open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return fmt.Errorf("video writer did not open for %s", path)
	}

	r.writer = writer
	r.path = path
	logrus.WithField("file", path).Info("recording started")
	return nil
}

// Write appends a frame to the recording; frames arriving while not
// recording are dropped silently
func (r *Recorder) Write(frame gocv.Mat) {
	if r.writer == nil {
		return
	}
	if err := r.writer.Write(frame); err != nil {
		logrus.WithError(err).Warn("failed to write frame")
	}
}

// Stop finishes the recording and returns the output path
func (r *Recorder) Stop() (string, error) {
	if r.writer == nil {
		return "", fmt.Errorf("not recording")
	}

	err := r.writer.Close()
	r.writer = nil
	path := r.path
	r.path = ""
	if err != nil {
		return "", fmt.Errorf("failed to finalize recording: %w", err)
	}

	logrus.WithField("file", path).Info("recording saved")
	return path, nil
}

// Close stops any in-progress recording. A finalize failure is logged here
// since no caller is left to handle it.
func (r *Recorder) Close() {
	if r.writer == nil {
		return
	}
	if _, err := r.Stop(); err != nil {
		logrus.WithError(err).Warn("failed to finalize recording")
	}
}
