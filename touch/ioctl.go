package touch

import (
	"golang.org/x/sys/unix"
)

// Event types and codes from input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0x00

	btnLeft    = 0x110
	btnToolPen = 0x140
	btnTouch   = 0x14a

	relX = 0x00
	relY = 0x01

	absX            = 0x00
	absY            = 0x01
	absMtSlot       = 0x2f
	absMtPositionX  = 0x35
	absMtPositionY  = 0x36
	absMtTrackingID = 0x39

	evMax  = 0x1f
	keyMax = 0x2ff
	relMax = 0x0f
	absMax = 0x3f
)

// ioctl request encoding from ioctl.h.
const (
	iocNone  = 0x0
	iocWrite = 0x1
	iocRead  = 0x2

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	absInfoSize = 24
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func ioR(typ, nr, size uintptr) uintptr { return ioc(iocRead, typ, nr, size) }
func ioW(typ, nr, size uintptr) uintptr { return ioc(iocWrite, typ, nr, size) }
func io(typ, nr uintptr) uintptr       { return ioc(iocNone, typ, nr, 0) }

// Requests from input.h.
func eviocgbit(ev, size int) uintptr { return ioc(iocRead, 'E', uintptr(0x20+ev), uintptr(size)) }
func eviocgabs(axis int) uintptr     { return ioR('E', uintptr(0x40+axis), absInfoSize) }

var eviocgrab = ioW('E', 0x90, 4)

// Requests from uinput.h.
var (
	uiSetEvBit   = ioW('U', 100, 4)
	uiSetKeyBit  = ioW('U', 101, 4)
	uiSetAbsBit  = ioW('U', 103, 4)
	uiDevCreate  = io('U', 1)
	uiDevDestroy = io('U', 2)
)

func ioctl(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}

func testBit(bits []byte, n int) bool {
	idx := n / 8
	if idx >= len(bits) {
		return false
	}

	return bits[idx]&(1<<(n%8)) != 0
}
