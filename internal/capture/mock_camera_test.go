package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

// testFrames builds n solid-color frames.
func testFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		mat := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
		frames = append(frames, &mat)
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func TestMockCamera_ReadFrame(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 2), false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		frame.Close()
	}

	// Playback is exhausted without looping.
	if _, err := cam.ReadFrame(); err == nil {
		t.Error("ReadFrame() past the end should fail without loop")
	}
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 2), true)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 6; i++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		frame.Close()
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 1), false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}

	if cam.IsOpen() {
		t.Error("camera should not report open before Open()")
	}
}

func TestMockCamera_FPS(t *testing.T) {
	cam := NewMockCamera(nil, false)

	if got := cam.FPS(); got != IdleFPS {
		t.Errorf("FPS() = %d, want idle default %d", got, IdleFPS)
	}

	cam.SetFPS(ActiveFPS)
	if got := cam.FPS(); got != ActiveFPS {
		t.Errorf("FPS() = %d, want %d", got, ActiveFPS)
	}

	// Non-positive rates are ignored.
	cam.SetFPS(0)
	if got := cam.FPS(); got != ActiveFPS {
		t.Errorf("FPS() after SetFPS(0) = %d, want unchanged %d", got, ActiveFPS)
	}
}

func TestMockCamera_Reset(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 1), false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	frame, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	frame.Close()

	cam.Reset()

	frame, err = cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after Reset() error = %v", err)
	}
	frame.Close()
}
