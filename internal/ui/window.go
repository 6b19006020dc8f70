package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/target"
)

const (
	iconBarHeight = 90
	iconSize      = 70
	iconSpacing   = 80
	iconMargin    = 20
)

// Window manages the preview display: FPS overlay, alpha trackbar, target
// icon bar and recording indicator
type Window struct {
	window     *gocv.Window
	alphaBar   *gocv.Trackbar
	icons      []gocv.Mat
	iconMask   gocv.Mat
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates the preview window with an alpha trackbar (0-100)
func NewWindow(name string) *Window {
	window := gocv.NewWindow(name)
	alphaBar := window.CreateTrackbar("alpha", 100)
	alphaBar.SetPos(50)

	iconMask := gocv.NewMatWithSize(iconSize, iconSize, gocv.MatTypeCV8U)
	gocv.Circle(&iconMask, image.Pt(iconSize/2, iconSize/2), iconSize/2,
		color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	return &Window{
		window:    window,
		alphaBar:  alphaBar,
		iconMask:  iconMask,
		lastFrame: time.Now(),
	}
}

// SetTargets renders circular icons for the target gallery
func (w *Window) SetTargets(assets []*target.Asset) {
	for _, icon := range w.icons {
		icon.Close()
	}
	w.icons = w.icons[:0]
	for _, a := range assets {
		w.icons = append(w.icons, a.Icon(iconSize))
	}
}

// Alpha returns the blend factor from the trackbar as a value in [0, 1]
func (w *Window) Alpha() float64 {
	return float64(w.alphaBar.GetPos()) / 100.0
}

// DrawOverlay draws the icon bar and, while recording, the REC indicator.
// Called after the frame has been handed to the recorder so UI chrome never
// ends up in saved footage.
func (w *Window) DrawOverlay(frame *gocv.Mat, activeTarget int, recording bool) {
	w.drawIconBar(frame, activeTarget)
	if recording {
		w.drawRecordingIndicator(frame)
	}
}

func (w *Window) drawIconBar(frame *gocv.Mat, activeTarget int) {
	barY := frame.Rows() - iconBarHeight
	if barY < 0 {
		return
	}

	x0 := iconMargin
	for i, icon := range w.icons {
		if x0+iconSize > frame.Cols() {
			break
		}

		region := frame.Region(image.Rect(x0, barY, x0+iconSize, barY+iconSize))
		icon.CopyToWithMask(&region, w.iconMask)
		region.Close()

		if i == activeTarget {
			center := image.Pt(x0+iconSize/2, barY+iconSize/2)
			gocv.Circle(frame, center, iconSize/2+3, color.RGBA{R: 255, G: 255, B: 0, A: 255}, 3)
		}

		x0 += iconSpacing
	}
}

func (w *Window) drawRecordingIndicator(frame *gocv.Mat) {
	gocv.Circle(frame, image.Pt(frame.Cols()-30, 30), 10, color.RGBA{R: 255, A: 255}, -1)
	gocv.PutText(frame, "REC", image.Pt(frame.Cols()-70, 40),
		gocv.FontHersheySimplex, 0.6, color.RGBA{R: 255, A: 255}, 2)
}

// Show displays a frame with an FPS counter
func (w *Window) Show(frame *gocv.Mat) {
	w.frameCount++
	now := time.Now()

	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	fpsText := fmt.Sprintf("FPS: %.1f", w.fps)
	gocv.PutText(frame, fpsText, image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, color.RGBA{G: 255, A: 255}, 2)

	w.window.IMShow(*frame)
}

// WaitKey waits for a key press, returning the key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns the current display rate
func (w *Window) FPS() float64 {
	return w.fps
}

// Close releases the window and icon resources
func (w *Window) Close() error {
	for _, icon := range w.icons {
		icon.Close()
	}
	w.iconMask.Close()
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
