package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/camera"
	"github.com/dudu/morphcam/internal/detector"
	"github.com/dudu/morphcam/internal/inference"
	"github.com/dudu/morphcam/internal/pipeline"
	"github.com/dudu/morphcam/internal/recorder"
	"github.com/dudu/morphcam/internal/target"
	"github.com/dudu/morphcam/internal/ui"
)

type runOptions struct {
	TargetDir     string
	RecordDir     string
	ModelPath     string
	CameraIndex   int
	Width         int
	Height        int
	FPS           int
	MeshThreshold float32
	PreserveEyes  bool
	PreserveMouth bool
	Preview       bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live morph loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(runOpts)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.TargetDir, "targets", "t", "Targets", "folder with target images and sidecar JSON files")
	runCmd.Flags().StringVarP(&runOpts.RecordDir, "recordings", "o", "Recordings", "folder for recorded videos")
	runCmd.Flags().StringVarP(&runOpts.ModelPath, "model", "m", "models/face_mesh.onnx", "face mesh ONNX model")
	runCmd.Flags().IntVarP(&runOpts.CameraIndex, "camera", "c", 0, "camera device index")
	runCmd.Flags().IntVar(&runOpts.Width, "width", 640, "capture width")
	runCmd.Flags().IntVar(&runOpts.Height, "height", 480, "capture height")
	runCmd.Flags().IntVar(&runOpts.FPS, "fps", 30, "target frames per second")
	runCmd.Flags().Float32Var(&runOpts.MeshThreshold, "mesh-threshold", 0.5, "face presence score threshold")
	runCmd.Flags().BoolVar(&runOpts.PreserveEyes, "preserve-eyes", true, "keep the real eyes unmodified")
	runCmd.Flags().BoolVar(&runOpts.PreserveMouth, "preserve-mouth", true, "keep the real mouth unmodified")
	runCmd.Flags().BoolVarP(&runOpts.Preview, "preview", "p", true, "show the preview window")

	rootCmd.AddCommand(runCmd)
}

func runLoop(opts runOptions) error {
	if err := inference.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize inference: %w", err)
	}
	defer inference.Shutdown()

	targets, err := target.LoadAll(opts.TargetDir)
	if err != nil {
		return err
	}

	source, err := detector.NewFaceMesh(opts.ModelPath, opts.MeshThreshold)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Config{
		PreserveEyes:  opts.PreserveEyes,
		PreserveMouth: opts.PreserveMouth,
	}, source, targets)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()

	cam, err := camera.NewCapture(opts.CameraIndex, opts.Width, opts.Height, opts.FPS)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer cam.Close()
	logrus.Infof("camera opened: %dx%d", cam.Width(), cam.Height())

	var window *ui.Window
	if opts.Preview {
		window = ui.NewWindow("Real-time Morph")
		window.SetTargets(targets)
		defer window.Close()
	}

	rec := recorder.New(opts.RecordDir, float64(opts.FPS))
	defer rec.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	frame := gocv.NewMat()
	defer frame.Close()

	logrus.Info("running: ESC or q quits, r toggles recording, 1-9 switch targets")

	for {
		select {
		case <-sigChan:
			logrus.Info("shutting down")
			return nil
		default:
		}

		if !cam.Read(&frame) || frame.Empty() {
			continue
		}

		alpha := 0.5
		if window != nil {
			alpha = window.Alpha()
		}

		if err := p.Process(&frame, alpha); err != nil {
			logrus.WithError(err).Warn("frame processing failed")
		}

		// Record before UI chrome is drawn
		rec.Write(frame)

		if window == nil {
			continue
		}

		window.DrawOverlay(&frame, p.ActiveTarget(), rec.Recording())

		timing := p.LastTiming()
		if timing.Total > 0 {
			text := fmt.Sprintf("D:%dms M:%dms F:%d",
				timing.Detection.Milliseconds(), timing.Morph.Milliseconds(), timing.Faces)
			gocv.PutText(&frame, text, image.Pt(10, 60),
				gocv.FontHersheyPlain, 1.5, color.RGBA{G: 255, A: 255}, 2)
		}

		window.Show(&frame)

		key := window.WaitKey(1)
		switch {
		case key == 27 || key == 'q':
			logrus.Info("quitting")
			return nil
		case key == 'r' || key == 'R':
			if rec.Recording() {
				if _, err := rec.Stop(); err != nil {
					logrus.WithError(err).Warn("failed to stop recording")
				}
			} else {
				if err := rec.Start(cam.Width(), cam.Height()); err != nil {
					logrus.WithError(err).Warn("failed to start recording")
				}
			}
		case key >= '1' && key <= '9':
			p.SelectTarget(key - '1')
		}
	}
}
