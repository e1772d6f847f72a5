package touch

import (
	"testing"

	"github.com/dkovalev/touchcal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(tbl *slotTable, slot, x, y int, now int64) {
	tbl.setSlot(slot)
	s := &tbl.slots[slot]
	s.RawX, s.RawY = x, y
	s.X, s.Y = x, y
	tbl.activate(slot, now)
}

func moveTo(tbl *slotTable, slot, x, y int) {
	tbl.slots[slot].X = x
	tbl.slots[slot].Y = y
}

func release(tbl *slotTable, slot int) {
	tbl.slots[slot].TrackingID = -1
}

func doSync(d *gestureDetector, tbl *slotTable, now int64) []model.TouchEvent {
	var out []model.TouchEvent

	d.onSync(tbl, now, func(ev model.TouchEvent) {
		out = append(out, ev)
	})

	return out
}

func types(events []model.TouchEvent) []model.EventType {
	out := make([]model.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}

	return out
}

func TestTapEmitsDownAndUp(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 100)
	down := doSync(d, tbl, 100)
	require.Len(t, down, 1)
	assert.Equal(t, model.TouchDown, down[0].Type)
	assert.Equal(t, 1, down[0].TouchCount)
	assert.Equal(t, 400, down[0].X)
	assert.Equal(t, 240, down[0].Y)

	release(tbl, 0)
	up := doSync(d, tbl, 150)
	require.Len(t, up, 1)
	assert.Equal(t, model.TouchUp, up[0].Type)
	assert.Equal(t, 0, up[0].TouchCount)
	assert.Equal(t, 400, up[0].X)
	assert.Equal(t, 240, up[0].Y)
}

func TestSwipeRight(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 20, 240, 0)
	events := doSync(d, tbl, 0)

	for i := 1; i <= 20; i++ {
		moveTo(tbl, 0, 20+i*39, 240)
		events = append(events, doSync(d, tbl, int64(i*10))...)
	}

	release(tbl, 0)
	events = append(events, doSync(d, tbl, 210)...)

	got := types(events)
	require.GreaterOrEqual(t, len(got), 22)
	assert.Equal(t, model.TouchDown, got[0])
	assert.Equal(t, model.TouchMove, got[1])
	assert.Equal(t, model.TouchUp, got[len(got)-2])
	assert.Equal(t, model.SwipeRight, got[len(got)-1])

	swipe := events[len(events)-1]
	assert.GreaterOrEqual(t, swipe.Value, SwipeMinPx)
}

func TestSwipeDirections(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy int
		want   model.EventType
	}{
		{"left", -200, 10, model.SwipeLeft},
		{"up", 5, -150, model.SwipeUp},
		{"down", -20, 180, model.SwipeDown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl := newSlotTable()
			d := &gestureDetector{}

			press(tbl, 0, 400, 240, 0)
			doSync(d, tbl, 0)

			moveTo(tbl, 0, 400+tc.dx, 240+tc.dy)
			doSync(d, tbl, 50)

			release(tbl, 0)
			events := doSync(d, tbl, 100)

			require.Len(t, events, 2)
			assert.Equal(t, tc.want, events[1].Type)
		})
	}
}

func TestDiagonalMotionIsNotASwipe(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 0)
	doSync(d, tbl, 0)

	moveTo(tbl, 0, 480, 310)
	doSync(d, tbl, 50)

	release(tbl, 0)
	events := doSync(d, tbl, 100)

	require.Len(t, events, 1)
	assert.Equal(t, model.TouchUp, events[0].Type)
}

func TestLongPress(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 1000)
	doSync(d, tbl, 1000)

	// A few stationary syncs, then release after 700 ms.
	doSync(d, tbl, 1300)
	doSync(d, tbl, 1600)

	release(tbl, 0)
	events := doSync(d, tbl, 1700)

	require.Len(t, events, 2)
	assert.Equal(t, model.TouchUp, events[0].Type)
	assert.Equal(t, model.LongPress, events[1].Type)
	assert.Equal(t, 400, events[1].X)
	assert.Equal(t, 240, events[1].Y)
}

func TestShortPressIsNotLong(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 1000)
	doSync(d, tbl, 1000)

	release(tbl, 0)
	events := doSync(d, tbl, 1200)

	require.Len(t, events, 1)
	assert.Equal(t, model.TouchUp, events[0].Type)
}

func TestDriftingPressIsNotLong(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 1000)
	doSync(d, tbl, 1000)

	moveTo(tbl, 0, 430, 240)
	doSync(d, tbl, 1400)

	release(tbl, 0)
	events := doSync(d, tbl, 1700)

	for _, ev := range events {
		assert.NotEqual(t, model.LongPress, ev.Type)
	}
}

func TestDoubleTap(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 100)
	doSync(d, tbl, 100)
	release(tbl, 0)
	doSync(d, tbl, 150)

	press(tbl, 0, 405, 242, 250)
	doSync(d, tbl, 250)
	release(tbl, 0)
	events := doSync(d, tbl, 300)

	require.Len(t, events, 2)
	assert.Equal(t, model.TouchUp, events[0].Type)
	assert.Equal(t, model.DoubleTap, events[1].Type)

	// A third tap 400 ms later does not chain into another double tap.
	press(tbl, 0, 405, 242, 700)
	doSync(d, tbl, 700)
	release(tbl, 0)
	events = doSync(d, tbl, 750)

	require.Len(t, events, 1)
	assert.Equal(t, model.TouchUp, events[0].Type)
}

func TestDistantTapsDoNotDouble(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 400, 240, 100)
	doSync(d, tbl, 100)
	release(tbl, 0)
	doSync(d, tbl, 150)

	press(tbl, 0, 500, 240, 250)
	doSync(d, tbl, 250)
	release(tbl, 0)
	events := doSync(d, tbl, 300)

	require.Len(t, events, 1)
	assert.Equal(t, model.TouchUp, events[0].Type)
}

func TestPinchOut(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 300, 240, 0)
	press(tbl, 1, 500, 240, 0)
	down := doSync(d, tbl, 0)
	require.Len(t, down, 1)
	assert.Equal(t, 2, down[0].TouchCount)

	var pinches []model.TouchEvent
	for i := 1; i <= 4; i++ {
		moveTo(tbl, 0, 300-5*i, 240)
		moveTo(tbl, 1, 500+5*i, 240)

		for _, ev := range doSync(d, tbl, int64(i*10)) {
			if ev.Type == model.PinchOut || ev.Type == model.PinchIn {
				pinches = append(pinches, ev)
			}
		}
	}

	require.Len(t, pinches, 1)
	assert.Equal(t, model.PinchOut, pinches[0].Type)
	assert.Positive(t, pinches[0].Value)

	// No motion, no redundant pinch.
	for _, ev := range doSync(d, tbl, 100) {
		assert.Equal(t, model.TouchMove, ev.Type)
	}
}

func TestPinchIn(t *testing.T) {
	tbl := newSlotTable()
	d := &gestureDetector{}

	press(tbl, 0, 200, 240, 0)
	press(tbl, 1, 600, 240, 0)
	doSync(d, tbl, 0)

	var pinches []model.TouchEvent
	for i := 1; i <= 4; i++ {
		moveTo(tbl, 0, 200+10*i, 240)
		moveTo(tbl, 1, 600-10*i, 240)

		for _, ev := range doSync(d, tbl, int64(i*10)) {
			if ev.Type == model.PinchOut || ev.Type == model.PinchIn {
				pinches = append(pinches, ev)
			}
		}
	}

	require.NotEmpty(t, pinches)
	assert.Equal(t, model.PinchIn, pinches[0].Type)
	assert.Negative(t, pinches[0].Value)
}
