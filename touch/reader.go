package touch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkovalev/touchcal/calib"
	"github.com/dkovalev/touchcal/model"
	"golang.org/x/sys/unix"
)

const (
	eventSize     = 24
	pollTimeoutMs = 250

	// PS/2 packets live in a 4096-square virtual raw space centred on
	// first contact.
	ps2RawMax = 4095
	ps2Center = 2048
)

var ErrNotRunning = errors.New("reader is not running")

var epoch = time.Now()

func nowMillis() int64 {
	return time.Since(epoch).Milliseconds()
}

// Reader owns the source device, the touch-state table and the calibration.
// One goroutine decodes kernel events; consumers interact through the queue
// and the snapshot accessors.
type Reader struct {
	mu       sync.Mutex // touch lock: table, calibration, detector
	table    *slotTable
	cal      calib.Calibration
	detector gestureDetector
	pending  bool

	queue *eventQueue

	running atomic.Bool
	wg      sync.WaitGroup

	fd          int
	devicePath  string
	kind        DeviceKind
	hasBtnTouch bool

	injMu      sync.Mutex
	inj        *injector
	mitmWanted bool
	grabWanted bool
}

func NewReader() *Reader {
	return &Reader{
		table: newSlotTable(),
		cal:   calib.Default(),
		queue: newEventQueue(),
		inj:   newInjector(),
		fd:    -1,
	}
}

// Start opens and classifies the device, then launches the decode loop.
// No partial state is kept on failure.
func (r *Reader) Start(device string) error {
	if r.running.Load() {
		return fmt.Errorf("reader already started on %s", r.devicePath)
	}

	fd, err := openDevice(device)
	if err != nil {
		return err
	}

	caps, err := probeCapabilities(fd, device)
	if err != nil {
		unix.Close(fd)

		return err
	}

	r.mu.Lock()
	r.table.reset()
	r.detector = gestureDetector{}
	r.pending = false
	r.mu.Unlock()

	r.queue.reset()

	r.fd = fd
	r.devicePath = device
	r.kind = caps.Kind
	r.hasBtnTouch = caps.HasBtnTouch

	r.running.Store(true)
	r.wg.Add(1)

	go r.loop()

	slog.InfoContext(deviceCtx, "reader started",
		"device", device, "kind", caps.Kind.String(), "name", caps.Name)

	if r.mitmWanted {
		if err := r.enableInjector(r.grabWanted); err != nil {
			slog.WarnContext(deviceCtx, "injector unavailable, events stay uncorrected", "error", err)
		}
	}

	return nil
}

// StartAuto tries every input node, mouse-named first, then event-named.
// The first device that opens and classifies wins.
func (r *Reader) StartAuto() error {
	paths, err := ListInputDevices()
	if err != nil {
		return err
	}

	for _, p := range autoCandidates(paths) {
		if err := r.Start(p); err == nil {
			return nil
		}
	}

	return errors.New("no usable input device found")
}

// Stop is idempotent: clear the flag, wake waiters, join the loop, release
// the grab and tear down the synthetic device, close the source.
func (r *Reader) Stop() {
	if !r.running.Swap(false) {
		return
	}

	r.queue.shutdown()
	r.wg.Wait()

	r.injMu.Lock()
	r.inj.disable()
	r.injMu.Unlock()

	if r.fd >= 0 {
		unix.Close(r.fd)
		r.fd = -1
	}

	slog.InfoContext(deviceCtx, "reader stopped", "device", r.devicePath)
}

func (r *Reader) SelectedDevice() string {
	return r.devicePath
}

// EnableMITM toggles the calibrated re-publishing device. The reader must
// be started so the screen geometry and source fd are known.
func (r *Reader) EnableMITM(enable, grabSource bool) error {
	if !r.running.Load() {
		return ErrNotRunning
	}

	if !enable {
		r.mitmWanted = false

		r.injMu.Lock()
		r.inj.disable()
		r.injMu.Unlock()

		return nil
	}

	r.mitmWanted = true
	r.grabWanted = grabSource

	return r.enableInjector(grabSource)
}

func (r *Reader) enableInjector(grab bool) error {
	r.mu.Lock()
	w, h := r.cal.ScreenWidth, r.cal.ScreenHeight
	r.mu.Unlock()

	r.injMu.Lock()
	defer r.injMu.Unlock()

	return r.inj.enable(w, h, r.fd, grab)
}

// --- queue surface ---

func (r *Reader) SetEventCallback(fn func(model.TouchEvent)) {
	r.queue.setCallback(fn)
}

func (r *Reader) GetNextEvent() (model.TouchEvent, bool) {
	return r.queue.poll()
}

func (r *Reader) WaitForEvent(timeoutMs int) (model.TouchEvent, bool) {
	return r.queue.wait(timeoutMs)
}

func (r *Reader) ClearEvents() {
	r.queue.clear()
}

// --- calibration surface ---

func (r *Reader) Calibration() calib.Calibration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cal
}

func (r *Reader) SetCalibration(c calib.Calibration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal = c
	r.remapLocked()
}

func (r *Reader) SetMinMax(minX, maxX, minY, maxY float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal.SetMinMax(minX, maxX, minY, maxY)
	r.remapLocked()
}

func (r *Reader) SetAffine(coeffs [6]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal.SetAffine(coeffs)
	r.remapLocked()
}

func (r *Reader) SetMargin(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal.SetMargin(percent)
}

func (r *Reader) SetOffset(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal.SetOffset(x, y)
	r.remapLocked()
}

func (r *Reader) SetScreenSize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cal.ScreenWidth = w
	r.cal.ScreenHeight = h
	r.remapLocked()
}

func (r *Reader) remapLocked() {
	for i := range r.table.slots {
		s := &r.table.slots[i]
		s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
	}
}

// --- snapshot surface ---

func (r *Reader) TouchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.table.activeCount()
}

func (r *Reader) TouchAt(i int) (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.table.active()
	if i < 0 || i >= len(active) {
		return 0, 0, false
	}

	return active[i].X, active[i].Y, true
}

func (r *Reader) RawTouchAt(i int) (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.table.active()
	if i < 0 || i >= len(active) {
		return 0, 0, false
	}

	return active[i].RawX, active[i].RawY, true
}

func (r *Reader) ActiveTouches() []model.TouchPoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.table.active()
}

// --- decode loops ---

func (r *Reader) loop() {
	defer r.wg.Done()

	if r.kind == KindMouse {
		r.mouseLoop()

		return
	}

	r.evdevLoop()
}

// evdevLoop reads one 24-byte record per iteration. Transient read errors
// are retried on the next iteration, never fatal.
func (r *Reader) evdevLoop() {
	buf := make([]byte, eventSize)
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}

	for r.running.Load() {
		fds[0].Revents = 0

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil || n == 0 {
			continue
		}

		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			time.Sleep(pollTimeoutMs * time.Millisecond)

			continue
		}

		n, err = unix.Read(r.fd, buf)
		if err != nil || n < eventSize {
			continue
		}

		typ := binary.LittleEndian.Uint16(buf[16:18])
		code := binary.LittleEndian.Uint16(buf[18:20])
		value := int32(binary.LittleEndian.Uint32(buf[20:24]))

		r.handleEvent(typ, code, value)
	}
}

func (r *Reader) handleEvent(typ, code uint16, value int32) {
	now := nowMillis()

	var out []model.TouchEvent

	r.mu.Lock()

	switch typ {
	case evAbs:
		r.handleAbs(code, int(value), now)
	case evKey:
		r.handleKey(code, value, now)
	case evRel:
		r.handleRel(code, int(value))
	case evSyn:
		if code == synReport && r.pending {
			r.detector.onSync(r.table, now, func(ev model.TouchEvent) {
				out = append(out, ev)
			})
			r.pending = false
		}
	}

	r.mu.Unlock()

	r.dispatch(out)
}

func (r *Reader) handleAbs(code uint16, v int, now int64) {
	switch code {
	case absMtSlot:
		r.table.setSlot(v)
	case absMtTrackingID:
		if v >= 0 {
			r.table.activate(v, now)
		} else {
			r.table.deactivate()
		}

		r.pending = true
	case absMtPositionX:
		s := &r.table.slots[r.table.current]
		s.RawX = v
		s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
		r.pending = true
	case absMtPositionY:
		s := &r.table.slots[r.table.current]
		s.RawY = v
		s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
		r.pending = true
	case absX:
		if r.kind != KindMultitouch {
			s := &r.table.slots[0]
			s.RawX = v
			s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
			r.pending = true
		}
	case absY:
		if r.kind != KindMultitouch {
			s := &r.table.slots[0]
			s.RawY = v
			s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
			r.pending = true
		}
	}
}

// handleKey toggles slot 0 on the contact key. BTN_TOUCH always counts;
// the pen tool and the primary button stand in only when the device lacks
// BTN_TOUCH. Multitouch devices carry contact state in tracking ids.
func (r *Reader) handleKey(code uint16, value int32, now int64) {
	if r.kind == KindMultitouch {
		return
	}

	contact := code == btnTouch ||
		(!r.hasBtnTouch && (code == btnToolPen || code == btnLeft))
	if !contact {
		return
	}

	r.table.current = 0

	if value != 0 {
		if !r.table.slots[0].Active() {
			r.table.activate(0, now)
		}
	} else {
		r.table.deactivate()
	}

	r.pending = true
}

// handleRel accumulates relative motion onto slot 0 while it is active.
func (r *Reader) handleRel(code uint16, v int) {
	s := &r.table.slots[0]
	if !s.Active() {
		return
	}

	switch code {
	case relX:
		s.RawX = clampInt(s.RawX+v, int(r.cal.MinX), int(r.cal.MaxX))
	case relY:
		s.RawY = clampInt(s.RawY+v, int(r.cal.MinY), int(r.cal.MaxY))
	default:
		return
	}

	s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
	r.pending = true
}

// mouseLoop buffers 3-byte PS/2 packets; every complete packet is a sync
// boundary.
func (r *Reader) mouseLoop() {
	var packet [3]byte

	idx := 0
	buf := make([]byte, 1)
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}

	for r.running.Load() {
		fds[0].Revents = 0

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil || n == 0 {
			continue
		}

		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			time.Sleep(pollTimeoutMs * time.Millisecond)

			continue
		}

		n, err = unix.Read(r.fd, buf)
		if err != nil || n != 1 {
			continue
		}

		packet[idx] = buf[0]
		idx++

		if idx == len(packet) {
			idx = 0
			r.handleMousePacket(packet)
		}
	}
}

func (r *Reader) handleMousePacket(packet [3]byte) {
	now := nowMillis()

	var out []model.TouchEvent

	r.mu.Lock()

	b0 := packet[0]
	left := b0&0x01 != 0
	s := &r.table.slots[0]

	switch {
	case left && !s.Active():
		r.table.current = 0
		s.RawX, s.RawY = ps2Center, ps2Center
		s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
		r.table.activate(0, now)
	case !left && s.Active():
		s.TrackingID = -1
	}

	if s.Active() {
		dx := int(packet[1])
		if b0&0x10 != 0 {
			dx -= 256
		}

		dy := int(packet[2])
		if b0&0x20 != 0 {
			dy -= 256
		}

		s.RawX = clampInt(s.RawX+dx, 0, ps2RawMax)
		s.RawY = clampInt(s.RawY-dy, 0, ps2RawMax)
		s.X, s.Y = r.cal.Map(s.RawX, s.RawY)
	}

	r.detector.onSync(r.table, now, func(ev model.TouchEvent) {
		out = append(out, ev)
	})

	r.mu.Unlock()

	r.dispatch(out)
}

// dispatch fans emitted events out to the queue, the callback and the
// injector, preserving production order.
func (r *Reader) dispatch(events []model.TouchEvent) {
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		r.queue.push(ev)
	}

	r.injMu.Lock()
	defer r.injMu.Unlock()

	for _, ev := range events {
		switch ev.Type {
		case model.TouchDown, model.TouchMove:
			if ev.TouchCount > 0 {
				r.inj.emitMove(ev.X, ev.Y)
			}
		case model.TouchUp:
			r.inj.emitUp()
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
