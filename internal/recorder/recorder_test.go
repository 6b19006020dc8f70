package recorder

import (
	"os"
	"testing"

	"gocv.io/x/gocv"
)

func TestRecorderLifecycle(t *testing.T) {
	rec := New(t.TempDir(), 30)
	if rec.Recording() {
		t.Fatal("new recorder should be idle")
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// Writing while idle is a silent drop
	rec.Write(frame)

	if err := rec.Start(160, 120); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
	if !rec.Recording() {
		t.Fatal("recorder not recording after Start")
	}
	if err := rec.Start(160, 120); err == nil {
		t.Error("second Start should fail while recording")
	}

	rec.Write(frame)

	rec.Close()
	if rec.Recording() {
		t.Error("recorder still recording after Close")
	}
}

func TestStopReturnsPath(t *testing.T) {
	rec := New(t.TempDir(), 30)
	defer rec.Close()

	if _, err := rec.Stop(); err == nil {
		t.Fatal("Stop while idle should fail")
	}

	if err := rec.Start(160, 120); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	rec.Write(frame)

	path, err := rec.Stop()
	if err != nil {
		t.Fatalf("failed to stop recording: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("recording file missing: %v", err)
	}
}
