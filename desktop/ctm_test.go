package desktop_test

import (
	"testing"

	"github.com/dkovalev/touchcal/desktop"
	"github.com/stretchr/testify/assert"
)

func dualLayout() desktop.Layout {
	return desktop.Layout{
		Monitors: []desktop.Monitor{
			{Index: 0, Name: "eDP-1", Primary: true, X: 0, Y: 0, Width: 1920, Height: 1080, ScaleX: 1, ScaleY: 1, Rotation: desktop.RotationNormal},
			{Index: 1, Name: "HDMI-1", X: 1920, Y: 0, Width: 1280, Height: 1024, ScaleX: 1, ScaleY: 1, Rotation: desktop.RotationNormal},
		},
		OriginX: 0, OriginY: 0, Width: 3200, Height: 1080,
	}
}

func assertCTM(t *testing.T, want, got desktop.CTM) {
	t.Helper()

	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "element %d", i)
	}
}

func TestIdentity(t *testing.T) {
	assertCTM(t, desktop.CTM{1, 0, 0, 0, 1, 0, 0, 0, 1}, desktop.Identity())
}

func TestComputeCTMNormal(t *testing.T) {
	l := dualLayout()

	ctm := desktop.ComputeCTM(l, l.Monitors[1])

	assertCTM(t, desktop.CTM{
		1280.0 / 3200, 0, 1920.0 / 3200,
		0, 1024.0 / 1080, 0,
		0, 0, 1,
	}, ctm)
}

func TestComputeCTMInverted(t *testing.T) {
	l := dualLayout()
	m := l.Monitors[1]
	m.Rotation = desktop.RotationInverted

	ctm := desktop.ComputeCTM(l, m)

	assertCTM(t, desktop.CTM{
		-1280.0 / 3200, 0, (1920.0 + 1280.0) / 3200,
		0, -1024.0 / 1080, 1024.0 / 1080,
		0, 0, 1,
	}, ctm)
}

func TestComputeCTMLeft(t *testing.T) {
	l := dualLayout()
	m := l.Monitors[1]
	m.Rotation = desktop.RotationLeft

	ctm := desktop.ComputeCTM(l, m)

	assertCTM(t, desktop.CTM{
		0, 1024.0 / 3200, 1920.0 / 3200,
		-1280.0 / 1080, 0, 1280.0 / 1080,
		0, 0, 1,
	}, ctm)
}

func TestComputeCTMRight(t *testing.T) {
	l := dualLayout()
	m := l.Monitors[1]
	m.Rotation = desktop.RotationRight

	ctm := desktop.ComputeCTM(l, m)

	assertCTM(t, desktop.CTM{
		0, -1024.0 / 3200, (1920.0 + 1024.0) / 3200,
		1280.0 / 1080, 0, 0,
		0, 0, 1,
	}, ctm)
}

func TestComputeCTMAppliesScale(t *testing.T) {
	l := dualLayout()
	m := l.Monitors[0]
	m.ScaleX = 2
	m.ScaleY = 2

	ctm := desktop.ComputeCTM(l, m)

	assertCTM(t, desktop.CTM{
		3840.0 / 3200, 0, 0,
		0, 2160.0 / 1080, 0,
		0, 0, 1,
	}, ctm)
}

func TestComputeCTMOffsetRelativeToOrigin(t *testing.T) {
	l := dualLayout()
	l.OriginX = -500
	m := l.Monitors[0]

	ctm := desktop.ComputeCTM(l, m)

	assert.InDelta(t, 500.0/3200, ctm[2], 1e-9)
}
