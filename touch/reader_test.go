package touch

import (
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/dkovalev/touchcal/calib"
	"github.com/dkovalev/touchcal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newPipeReader wires a Reader's decode loop to a pipe so tests can feed
// synthetic kernel event streams.
func newPipeReader(t *testing.T, kind DeviceKind, hasBtnTouch bool) (*Reader, *os.File) {
	t.Helper()

	rp, wp, err := os.Pipe()
	require.NoError(t, err)

	fd, err := unix.Dup(int(rp.Fd()))
	require.NoError(t, err)
	require.NoError(t, rp.Close())

	r := NewReader()

	c := calib.Default()
	c.SetMinMax(0, 4095, 0, 4095)
	c.ScreenWidth = 800
	c.ScreenHeight = 480
	r.SetCalibration(c)

	r.fd = fd
	r.kind = kind
	r.hasBtnTouch = hasBtnTouch
	r.devicePath = "pipe"
	r.running.Store(true)
	r.wg.Add(1)

	go r.loop()

	t.Cleanup(func() {
		r.Stop()
		wp.Close()
	})

	return r, wp
}

func writeRecord(t *testing.T, w *os.File, typ, code uint16, value int32) {
	t.Helper()

	var buf [eventSize]byte
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))

	_, err := w.Write(buf[:])
	require.NoError(t, err)
}

func TestSingleTapAtCentre(t *testing.T) {
	r, w := newPipeReader(t, KindMultitouch, true)

	writeRecord(t, w, evAbs, absMtSlot, 0)
	writeRecord(t, w, evAbs, absMtTrackingID, 17)
	writeRecord(t, w, evAbs, absMtPositionX, 2048)
	writeRecord(t, w, evAbs, absMtPositionY, 2048)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok := r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchDown, ev.Type)
	assert.Equal(t, 1, ev.TouchCount)
	assert.InDelta(t, 400, ev.X, 1)
	assert.InDelta(t, 240, ev.Y, 1)

	writeRecord(t, w, evAbs, absMtTrackingID, -1)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok = r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchUp, ev.Type)
	assert.Equal(t, 0, ev.TouchCount)
	assert.InDelta(t, 400, ev.X, 1)
	assert.InDelta(t, 240, ev.Y, 1)
}

func TestSwipeRightEndToEnd(t *testing.T) {
	r, w := newPipeReader(t, KindMultitouch, true)

	writeRecord(t, w, evAbs, absMtSlot, 0)
	writeRecord(t, w, evAbs, absMtTrackingID, 3)
	writeRecord(t, w, evAbs, absMtPositionX, 100)
	writeRecord(t, w, evAbs, absMtPositionY, 2000)
	writeRecord(t, w, evSyn, synReport, 0)

	for x := int32(300); x <= 4000; x += 200 {
		writeRecord(t, w, evAbs, absMtPositionX, x)
		writeRecord(t, w, evSyn, synReport, 0)
	}

	writeRecord(t, w, evAbs, absMtTrackingID, -1)
	writeRecord(t, w, evSyn, synReport, 0)

	var events []model.TouchEvent
	for {
		ev, ok := r.WaitForEvent(500)
		if !ok {
			break
		}

		events = append(events, ev)
		if ev.Type == model.SwipeRight {
			break
		}
	}

	require.NotEmpty(t, events)
	assert.Equal(t, model.TouchDown, events[0].Type)

	moves := 0
	for _, ev := range events {
		if ev.Type == model.TouchMove {
			moves++
		}
	}

	assert.GreaterOrEqual(t, moves, 19)

	last := events[len(events)-1]
	require.Equal(t, model.SwipeRight, last.Type)
	assert.GreaterOrEqual(t, last.Value, SwipeMinPx)
	assert.Equal(t, model.TouchUp, events[len(events)-2].Type)
}

func TestContactKeyFallback(t *testing.T) {
	r, w := newPipeReader(t, KindAbsolute, true)

	writeRecord(t, w, evKey, btnTouch, 1)
	writeRecord(t, w, evAbs, absX, 1024)
	writeRecord(t, w, evAbs, absY, 3072)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok := r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchDown, ev.Type)
	assert.InDelta(t, 200, ev.X, 1)
	assert.InDelta(t, 360, ev.Y, 1)

	writeRecord(t, w, evKey, btnTouch, 0)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok = r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchUp, ev.Type)
}

func TestPenKeyOnlyCountsWithoutBtnTouch(t *testing.T) {
	r, w := newPipeReader(t, KindAbsolute, true)

	// Device has BTN_TOUCH, so a pen-tool key must not toggle contact.
	writeRecord(t, w, evKey, btnToolPen, 1)
	writeRecord(t, w, evAbs, absX, 2048)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok := r.WaitForEvent(300)
	if ok {
		assert.NotEqual(t, model.TouchDown, ev.Type)
	}

	assert.Equal(t, 0, r.TouchCount())
}

func TestRelativeAccumulation(t *testing.T) {
	r, w := newPipeReader(t, KindRelative, false)

	writeRecord(t, w, evKey, btnLeft, 1)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok := r.WaitForEvent(1000)
	require.True(t, ok)
	require.Equal(t, model.TouchDown, ev.Type)

	writeRecord(t, w, evRel, relX, 100)
	writeRecord(t, w, evSyn, synReport, 0)

	ev, ok = r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchMove, ev.Type)

	rawX, _, ok := r.RawTouchAt(0)
	require.True(t, ok)
	assert.Equal(t, 100, rawX)
}

func TestMousePacketStream(t *testing.T) {
	r, w := newPipeReader(t, KindMouse, false)

	// Left press: slot 0 appears at the centre of the virtual space.
	_, err := w.Write([]byte{0x09, 0, 0})
	require.NoError(t, err)

	ev, ok := r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchDown, ev.Type)
	assert.InDelta(t, 400, ev.X, 1)
	assert.InDelta(t, 240, ev.Y, 1)

	// Motion right by 50.
	_, err = w.Write([]byte{0x09, 50, 0})
	require.NoError(t, err)

	ev, ok = r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchMove, ev.Type)

	rawX, rawY, ok := r.RawTouchAt(0)
	require.True(t, ok)
	assert.Equal(t, ps2Center+50, rawX)
	assert.Equal(t, ps2Center, rawY)

	// Release.
	_, err = w.Write([]byte{0x08, 0, 0})
	require.NoError(t, err)

	ev, ok = r.WaitForEvent(1000)
	require.True(t, ok)
	assert.Equal(t, model.TouchUp, ev.Type)
}

func TestMouseYInversion(t *testing.T) {
	r, w := newPipeReader(t, KindMouse, false)

	_, err := w.Write([]byte{0x09, 0, 0})
	require.NoError(t, err)
	_, ok := r.WaitForEvent(1000)
	require.True(t, ok)

	// Positive dy means up on a mouse, which decreases raw y here... the
	// packet moves the contact toward the top of the virtual space.
	_, err = w.Write([]byte{0x09, 0, 40})
	require.NoError(t, err)

	_, ok = r.WaitForEvent(1000)
	require.True(t, ok)

	_, rawY, ok := r.RawTouchAt(0)
	require.True(t, ok)
	assert.Equal(t, ps2Center-40, rawY)
}

func TestStopIsIdempotentAndBoundsWait(t *testing.T) {
	r, _ := newPipeReader(t, KindMultitouch, true)

	done := make(chan time.Duration, 1)

	go func() {
		start := time.Now()
		_, ok := r.WaitForEvent(-1)
		assert.False(t, ok)
		done <- time.Since(start)
	}()

	time.Sleep(50 * time.Millisecond)
	r.Stop()
	r.Stop()

	select {
	case elapsed := <-done:
		assert.Less(t, elapsed, 1100*time.Millisecond)
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("wait(-1) did not return after Stop")
	}
}

func TestCalibrationChangeRemapsActiveTouches(t *testing.T) {
	r, w := newPipeReader(t, KindMultitouch, true)

	writeRecord(t, w, evAbs, absMtSlot, 0)
	writeRecord(t, w, evAbs, absMtTrackingID, 1)
	writeRecord(t, w, evAbs, absMtPositionX, 2048)
	writeRecord(t, w, evAbs, absMtPositionY, 2048)
	writeRecord(t, w, evSyn, synReport, 0)

	_, ok := r.WaitForEvent(1000)
	require.True(t, ok)

	r.SetOffset(1000, 0)

	x, _, ok := r.TouchAt(0)
	require.True(t, ok)
	assert.InDelta(t, 1400, x, 1)
}

func TestEnableMITMRejectedWhenStopped(t *testing.T) {
	r := NewReader()

	err := r.EnableMITM(true, false)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestEventCallbackFires(t *testing.T) {
	r, w := newPipeReader(t, KindMultitouch, true)

	got := make(chan model.TouchEvent, 4)
	r.SetEventCallback(func(ev model.TouchEvent) {
		got <- ev
	})

	writeRecord(t, w, evAbs, absMtTrackingID, 5)
	writeRecord(t, w, evAbs, absMtPositionX, 100)
	writeRecord(t, w, evAbs, absMtPositionY, 100)
	writeRecord(t, w, evSyn, synReport, 0)

	select {
	case ev := <-got:
		assert.Equal(t, model.TouchDown, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
