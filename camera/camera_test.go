package camera

import (
	"math"
	"testing"
)

func TestWorldToScreenCorners(t *testing.T) {
	cam := New(400, 200, -1, -1, 1, 1)

	sx, sy := cam.WorldToScreen(-1, -1)
	if sx != 0 || sy != 0 {
		t.Errorf("expected min corner at (0, 0), got (%f, %f)", sx, sy)
	}
	sx, sy = cam.WorldToScreen(1, 1)
	if sx != 400 || sy != 200 {
		t.Errorf("expected max corner at (400, 200), got (%f, %f)", sx, sy)
	}
	sx, sy = cam.WorldToScreen(0, 0)
	if sx != 200 || sy != 100 {
		t.Errorf("expected center at (200, 100), got (%f, %f)", sx, sy)
	}
}

func TestYUpFlips(t *testing.T) {
	cam := New(400, 200, -1, -1, 1, 1)
	cam.YUp = true

	_, sy := cam.WorldToScreen(0, 1)
	if sy != 0 {
		t.Errorf("expected max y at top, got %f", sy)
	}
	_, sy = cam.WorldToScreen(0, -1)
	if sy != 200 {
		t.Errorf("expected min y at bottom, got %f", sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	for _, yUp := range []bool{false, true} {
		cam := New(640, 480, -2, -0.5, 3, 0.5)
		cam.Place(30, 20, 640, 480)
		cam.YUp = yUp

		testCases := []struct{ sx, sy float64 }{
			{350, 260},
			{30, 20},
			{670, 500},
			{101.5, 77.25},
		}

		for _, tc := range testCases {
			wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
			sx, sy := cam.WorldToScreen(wx, wy)
			if math.Abs(sx-tc.sx) > 1e-9 || math.Abs(sy-tc.sy) > 1e-9 {
				t.Errorf("yUp=%v roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
					yUp, tc.sx, tc.sy, wx, wy, sx, sy)
			}
		}
	}
}

func TestContains(t *testing.T) {
	cam := New(100, 100, 0, 0, 1, 1)
	cam.Place(10, 10, 100, 100)

	if !cam.Contains(50, 50) {
		t.Error("expected (50, 50) inside viewport")
	}
	if cam.Contains(5, 50) {
		t.Error("expected (5, 50) outside viewport")
	}
	if cam.Contains(50, 111) {
		t.Error("expected (50, 111) outside viewport")
	}
}

func TestWorldRectPositive(t *testing.T) {
	cam := New(200, 200, -1, -1, 1, 1)
	cam.YUp = true

	x, y, w, h := cam.WorldRect(0, 0, 0.5, 0.5)
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive size, got %f x %f", w, h)
	}
	if x != 100 || y != 50 || w != 50 || h != 50 {
		t.Errorf("unexpected rect (%f, %f, %f, %f)", x, y, w, h)
	}
}

func TestResizeClamp(t *testing.T) {
	cam := New(100, 100, 0, 0, 1, 1)
	cam.Resize(0, -5)
	if cam.ViewportW != 1 || cam.ViewportH != 1 {
		t.Errorf("expected 1x1 viewport, got %fx%f", cam.ViewportW, cam.ViewportH)
	}
}
