package touch

import (
	"math"

	"github.com/dkovalev/touchcal/model"
)

// Recogniser thresholds, in screen pixels and milliseconds.
const (
	SwipeMinPx       = 50
	PinchThresholdPx = 20
	LongPressMs      = 500
	DoubleTapMs      = 300

	longPressMaxDriftPx = 20
	doubleTapRadiusPx   = 30
)

// gestureDetector diffs consecutive touch-set snapshots at sync boundaries.
// It runs under the touch lock and emits through the supplied function.
type gestureDetector struct {
	prevCount int

	startTouches []model.TouchPoint
	startCount   int

	lastX, lastY int

	lastTapAt   int64
	lastTapX    int
	lastTapY    int
	haveLastTap bool

	pinchRef    float64
	pinchActive bool
}

// onSync classifies the transition from the previous snapshot to cur.
// On touch-down it writes frozen start positions back into the live table.
func (d *gestureDetector) onSync(table *slotTable, now int64, emit func(model.TouchEvent)) {
	cur := table.active()
	count := len(cur)

	switch {
	case d.prevCount == 0 && count > 0:
		d.touchDown(table, cur, now, emit)
	case d.prevCount > 0 && count == 0:
		d.touchUp(now, emit)
	case count > 0 && count == d.prevCount:
		x, y := centroid(cur)

		emit(model.TouchEvent{
			Type: model.TouchMove, TouchCount: count,
			X: x, Y: y, Timestamp: now, Touches: cur,
		})

		if count == 2 {
			d.pinch(cur, now, emit)
		}
	}

	if count > 0 {
		x, y := centroid(cur)
		d.lastX, d.lastY = x, y
	}

	d.prevCount = count
}

func (d *gestureDetector) touchDown(table *slotTable, cur []model.TouchPoint, now int64, emit func(model.TouchEvent)) {
	// Freeze start positions now that real coordinates have arrived; the
	// provisional stamp at tracking-id time may predate the axis events.
	for i := range table.slots {
		s := &table.slots[i]
		if s.Active() {
			s.StartX = s.X
			s.StartY = s.Y
			s.Timestamp = now
		}
	}

	cur = table.active()
	d.startTouches = cur
	d.startCount = len(cur)
	d.pinchActive = false

	x, y := centroid(cur)
	d.lastX, d.lastY = x, y

	emit(model.TouchEvent{
		Type: model.TouchDown, TouchCount: len(cur),
		X: x, Y: y, Timestamp: now, Touches: cur,
	})
}

func (d *gestureDetector) touchUp(now int64, emit func(model.TouchEvent)) {
	x, y := d.lastX, d.lastY

	emit(model.TouchEvent{
		Type: model.TouchUp, TouchCount: 0,
		X: x, Y: y, Timestamp: now,
	})

	d.longPress(x, y, now, emit)

	doubled := false
	if d.startCount == 1 {
		doubled = d.doubleTap(x, y, now, emit)
		d.swipe(x, y, now, emit)
	}

	if doubled {
		d.haveLastTap = false
	} else if d.startCount == 1 {
		d.lastTapAt = now
		d.lastTapX, d.lastTapY = x, y
		d.haveLastTap = true
	}

	d.startTouches = nil
	d.startCount = 0
	d.pinchActive = false
}

func (d *gestureDetector) longPress(x, y int, now int64, emit func(model.TouchEvent)) {
	for _, s := range d.startTouches {
		dx := abs(d.lastX - s.StartX)
		dy := abs(d.lastY - s.StartY)

		if dx < longPressMaxDriftPx && dy < longPressMaxDriftPx && now-s.Timestamp >= LongPressMs {
			emit(model.TouchEvent{
				Type: model.LongPress, TouchCount: 0,
				X: x, Y: y, Value: int(now - s.Timestamp), Timestamp: now,
			})

			return
		}
	}
}

func (d *gestureDetector) doubleTap(x, y int, now int64, emit func(model.TouchEvent)) bool {
	if !d.haveLastTap || now-d.lastTapAt > DoubleTapMs {
		return false
	}

	dx := x - d.lastTapX
	dy := y - d.lastTapY
	if math.Hypot(float64(dx), float64(dy)) > doubleTapRadiusPx {
		return false
	}

	emit(model.TouchEvent{
		Type: model.DoubleTap, TouchCount: 0,
		X: x, Y: y, Timestamp: now,
	})

	return true
}

func (d *gestureDetector) swipe(x, y int, now int64, emit func(model.TouchEvent)) {
	start := d.startTouches[0]
	dx := x - start.StartX
	dy := y - start.StartY
	adx, ady := abs(dx), abs(dy)

	var typ model.EventType
	var magnitude int

	switch {
	case adx >= SwipeMinPx && adx >= 2*ady:
		magnitude = adx
		if dx > 0 {
			typ = model.SwipeRight
		} else {
			typ = model.SwipeLeft
		}
	case ady >= SwipeMinPx && ady >= 2*adx:
		magnitude = ady
		if dy > 0 {
			typ = model.SwipeDown
		} else {
			typ = model.SwipeUp
		}
	default:
		return
	}

	emit(model.TouchEvent{
		Type: typ, TouchCount: 0,
		X: x, Y: y, Value: magnitude, Timestamp: now,
	})
}

// pinch accumulates distance change against a reference that only advances
// when a pinch fires, so slow spreads still trigger eventually.
func (d *gestureDetector) pinch(cur []model.TouchPoint, now int64, emit func(model.TouchEvent)) {
	dist := math.Hypot(float64(cur[0].X-cur[1].X), float64(cur[0].Y-cur[1].Y))

	if !d.pinchActive {
		d.pinchRef = dist
		d.pinchActive = true

		return
	}

	delta := dist - d.pinchRef
	if math.Abs(delta) <= PinchThresholdPx {
		return
	}

	typ := model.PinchOut
	if delta < 0 {
		typ = model.PinchIn
	}

	x, y := centroid(cur)
	emit(model.TouchEvent{
		Type: typ, TouchCount: len(cur),
		X: x, Y: y, Value: int(math.Round(delta)), Timestamp: now, Touches: cur,
	})

	d.pinchRef = dist
}

func centroid(points []model.TouchPoint) (int, int) {
	if len(points) == 0 {
		return 0, 0
	}

	var sx, sy int
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}

	return sx / len(points), sy / len(points)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
