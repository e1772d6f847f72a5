package touch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

const (
	uinputPath        = "/dev/uinput"
	uinputMaxNameSize = 80
	absCnt            = absMax + 1

	injectorName    = "touchcal calibrated"
	injectorVendor  = 0x1234
	injectorProduct = 0x5678
)

type inputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev from uinput.h.
type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	AbsMax     [absCnt]int32
	AbsMin     [absCnt]int32
	AbsFuzz    [absCnt]int32
	AbsFlat    [absCnt]int32
}

// injector owns the synthetic device that re-publishes calibrated
// coordinates, plus the optional exclusive grab on the source.
type injector struct {
	fd          int
	created     bool
	contactDown bool
	grabbed     bool
	sourceFd    int
}

func newInjector() *injector {
	return &injector{fd: -1, sourceFd: -1}
}

// enable creates the synthetic device. Calling it again is a no-op apart
// from retrying a requested grab. A grab refusal logs a warning and the
// injector stays enabled.
func (inj *injector) enable(screenW, screenH, sourceFd int, grab bool) error {
	if !inj.created {
		if err := inj.create(screenW, screenH); err != nil {
			return err
		}
	}

	inj.sourceFd = sourceFd

	if grab && !inj.grabbed && sourceFd >= 0 {
		if err := ioctl(sourceFd, eviocgrab, 1); err != nil {
			slog.WarnContext(deviceCtx, "could not grab source device, raw events stay visible", "error", err)
		} else {
			inj.grabbed = true
		}
	}

	return nil
}

func (inj *injector) create(screenW, screenH int) error {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", uinputPath, err)
	}

	setup := []struct {
		req uintptr
		arg int
	}{
		{uiSetEvBit, evKey},
		{uiSetKeyBit, btnTouch},
		{uiSetEvBit, evAbs},
		{uiSetAbsBit, absX},
		{uiSetAbsBit, absY},
		{uiSetEvBit, evSyn},
	}

	for _, s := range setup {
		if err := ioctl(fd, s.req, uintptr(s.arg)); err != nil {
			unix.Close(fd)

			return fmt.Errorf("configuring uinput bits: %w", err)
		}
	}

	dev := uinputUserDev{
		ID: inputID{BusType: unix.BUS_USB, Vendor: injectorVendor, Product: injectorProduct, Version: 1},
	}
	copy(dev.Name[:], injectorName)
	dev.AbsMax[absX] = int32(screenW - 1)
	dev.AbsMax[absY] = int32(screenH - 1)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &dev); err != nil {
		unix.Close(fd)

		return fmt.Errorf("encoding uinput device: %w", err)
	}

	if _, err := unix.Write(fd, buf.Bytes()); err != nil {
		unix.Close(fd)

		return fmt.Errorf("writing uinput device description: %w", err)
	}

	if err := ioctl(fd, uiDevCreate, 0); err != nil {
		unix.Close(fd)

		return fmt.Errorf("creating uinput device: %w", err)
	}

	inj.fd = fd
	inj.created = true
	inj.contactDown = false

	slog.InfoContext(deviceCtx, "synthetic device created", "name", injectorName)

	return nil
}

// disable releases the grab first so the raw device reappears before the
// synthetic one goes away.
func (inj *injector) disable() {
	if inj.grabbed && inj.sourceFd >= 0 {
		if err := ioctl(inj.sourceFd, eviocgrab, 0); err != nil {
			slog.WarnContext(deviceCtx, "could not release grab", "error", err)
		}

		inj.grabbed = false
	}

	if inj.created {
		if err := ioctl(inj.fd, uiDevDestroy, 0); err != nil {
			slog.WarnContext(deviceCtx, "could not destroy synthetic device", "error", err)
		}

		unix.Close(inj.fd)
		inj.fd = -1
		inj.created = false
		inj.contactDown = false
	}
}

// emitMove publishes a calibrated contact position. The contact-down key is
// sent once per contact.
func (inj *injector) emitMove(x, y int) {
	if !inj.created {
		return
	}

	if !inj.contactDown {
		inj.writeEvent(evKey, btnTouch, 1)
		inj.contactDown = true
	}

	inj.writeEvent(evAbs, absX, int32(x))
	inj.writeEvent(evAbs, absY, int32(y))
	inj.writeEvent(evSyn, synReport, 0)
}

func (inj *injector) emitUp() {
	if !inj.created || !inj.contactDown {
		return
	}

	inj.writeEvent(evKey, btnTouch, 0)
	inj.writeEvent(evSyn, synReport, 0)
	inj.contactDown = false
}

// writeEvent sends one 24-byte record with zero timestamps.
func (inj *injector) writeEvent(typ, code uint16, value int32) {
	var rec [eventSize]byte

	binary.LittleEndian.PutUint16(rec[16:18], typ)
	binary.LittleEndian.PutUint16(rec[18:20], code)
	binary.LittleEndian.PutUint32(rec[20:24], uint32(value))

	if _, err := unix.Write(inj.fd, rec[:]); err != nil {
		slog.DebugContext(deviceCtx, "injector write failed", "error", err)
	}
}
