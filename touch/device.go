package touch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"github.com/dkovalev/touchcal/logging"
	"golang.org/x/sys/unix"
)

var deviceCtx = logging.PackageCtx("touch")

// DeviceKind tags the loop strategy picked at Start time.
type DeviceKind int

const (
	KindMultitouch DeviceKind = iota
	KindAbsolute
	KindRelative
	KindMouse
)

func (k DeviceKind) String() string {
	switch k {
	case KindMultitouch:
		return "multitouch"
	case KindAbsolute:
		return "absolute"
	case KindRelative:
		return "relative"
	case KindMouse:
		return "mouse"
	}

	return "unknown"
}

// Capabilities is the probe result for one input node.
type Capabilities struct {
	Kind        DeviceKind
	HasBtnTouch bool
	Name        string
}

func openDevice(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return -1, fmt.Errorf("opening %s: %w", path, err)
	}

	return fd, nil
}

// probeCapabilities classifies the device behind fd. Mouse streams are
// recognised by path alone since the PS/2 byte protocol answers no ioctls.
func probeCapabilities(fd int, path string) (Capabilities, error) {
	var caps Capabilities

	if strings.Contains(filepath.Base(path), "mouse") {
		caps.Kind = KindMouse
		caps.Name = filepath.Base(path)

		return caps, nil
	}

	var evBits [evMax/8 + 1]byte
	if err := ioctl(fd, eviocgbit(0, len(evBits)), uintptr(unsafe.Pointer(&evBits[0]))); err != nil {
		return caps, fmt.Errorf("querying event bits of %s: %w", path, err)
	}

	var keyBits [keyMax/8 + 1]byte
	var absBits [absMax/8 + 1]byte
	var relBits [relMax/8 + 1]byte

	if testBit(evBits[:], evKey) {
		if err := ioctl(fd, eviocgbit(evKey, len(keyBits)), uintptr(unsafe.Pointer(&keyBits[0]))); err != nil {
			return caps, fmt.Errorf("querying key bits of %s: %w", path, err)
		}
	}

	if testBit(evBits[:], evAbs) {
		if err := ioctl(fd, eviocgbit(evAbs, len(absBits)), uintptr(unsafe.Pointer(&absBits[0]))); err != nil {
			return caps, fmt.Errorf("querying abs bits of %s: %w", path, err)
		}
	}

	if testBit(evBits[:], evRel) {
		if err := ioctl(fd, eviocgbit(evRel, len(relBits)), uintptr(unsafe.Pointer(&relBits[0]))); err != nil {
			return caps, fmt.Errorf("querying rel bits of %s: %w", path, err)
		}
	}

	caps.HasBtnTouch = testBit(keyBits[:], btnTouch)
	caps.Name = deviceName(fd)

	switch {
	case testBit(absBits[:], absMtSlot) && testBit(absBits[:], absMtTrackingID) &&
		testBit(absBits[:], absMtPositionX) && testBit(absBits[:], absMtPositionY):
		caps.Kind = KindMultitouch
	case testBit(absBits[:], absX) && testBit(absBits[:], absY):
		caps.Kind = KindAbsolute
	case testBit(relBits[:], relX) || testBit(relBits[:], relY) || testBit(keyBits[:], btnLeft):
		caps.Kind = KindRelative
	default:
		return caps, fmt.Errorf("%s reports neither absolute nor relative axes", path)
	}

	slog.DebugContext(deviceCtx, "probed device",
		"path", path, "kind", caps.Kind.String(), "btn_touch", caps.HasBtnTouch, "name", caps.Name)

	return caps, nil
}

func deviceName(fd int) string {
	var buf [256]byte

	req := ioc(iocRead, 'E', 0x06, uintptr(len(buf)))
	if err := ioctl(fd, req, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return ""
	}

	name := string(buf[:])
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	return name
}

// Probe opens a node, classifies it and closes it again.
func Probe(path string) (Capabilities, error) {
	fd, err := openDevice(path)
	if err != nil {
		return Capabilities{}, err
	}
	defer unix.Close(fd)

	return probeCapabilities(fd, path)
}

// ListInputDevices returns every node under /dev/input, sorted.
func ListInputDevices() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, fmt.Errorf("listing /dev/input: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		paths = append(paths, filepath.Join("/dev/input", e.Name()))
	}

	sort.Strings(paths)

	return paths, nil
}

// autoCandidates orders nodes for auto-detection: mouse-named first, then
// event-named, then the rest.
func autoCandidates(paths []string) []string {
	var mice, events, rest []string

	for _, p := range paths {
		base := filepath.Base(p)
		switch {
		case strings.HasPrefix(base, "mouse"):
			mice = append(mice, p)
		case strings.HasPrefix(base, "event"):
			events = append(events, p)
		default:
			rest = append(rest, p)
		}
	}

	out := make([]string, 0, len(paths))
	out = append(out, mice...)
	out = append(out, events...)
	out = append(out, rest...)

	return out
}

// AbsMaxima queries the ABS_X and ABS_Y maximum of an event node.
func AbsMaxima(path string) (int, int, error) {
	fd, err := openDevice(path)
	if err != nil {
		return 0, 0, err
	}
	defer unix.Close(fd)

	type absInfo struct {
		Value      int32
		Minimum    int32
		Maximum    int32
		Fuzz       int32
		Flat       int32
		Resolution int32
	}

	var x, y absInfo
	if err := ioctl(fd, eviocgabs(absX), uintptr(unsafe.Pointer(&x))); err != nil {
		return 0, 0, fmt.Errorf("querying ABS_X of %s: %w", path, err)
	}

	if err := ioctl(fd, eviocgabs(absY), uintptr(unsafe.Pointer(&y))); err != nil {
		return 0, 0, fmt.Errorf("querying ABS_Y of %s: %w", path, err)
	}

	return int(x.Maximum), int(y.Maximum), nil
}
