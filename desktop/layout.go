package desktop

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/dkovalev/touchcal/logging"
	"log/slog"
)

var desktopCtx = logging.PackageCtx("desktop")

// Rotation of a monitor as reported by xrandr.
type Rotation string

const (
	RotationNormal   Rotation = "normal"
	RotationInverted Rotation = "inverted"
	RotationLeft     Rotation = "left"
	RotationRight    Rotation = "right"
)

type Monitor struct {
	Index    int
	Name     string
	Primary  bool
	X        int
	Y        int
	Width    int
	Height   int
	ScaleX   float64
	ScaleY   float64
	Rotation Rotation
	EDIDHash uint64
}

// Layout is a snapshot of the desktop: all monitors plus the bounding box.
type Layout struct {
	Monitors []Monitor
	OriginX  int
	OriginY  int
	Width    int
	Height   int
}

// DetectLayout shells out to xrandr twice: --listmonitors for geometry and
// --verbose for rotation, scale and EDID.
func DetectLayout() (Layout, error) {
	listOut, err := exec.Command("xrandr", "--listmonitors").Output()
	if err != nil {
		return Layout{}, fmt.Errorf("running xrandr --listmonitors: %w", err)
	}

	layout, err := ParseMonitorList(string(listOut))
	if err != nil {
		return Layout{}, err
	}

	verboseOut, err := exec.Command("xrandr", "--verbose").Output()
	if err != nil {
		// Geometry alone is still usable.
		slog.WarnContext(desktopCtx, "xrandr --verbose failed, rotation and scale default", "error", err)

		return layout, nil
	}

	ApplyVerboseDetails(&layout, string(verboseOut))

	return layout, nil
}

// monitorLine matches e.g. " 0: +*eDP-1 1920/344x1080/194+0+0  eDP-1".
var monitorLine = regexp.MustCompile(`^\s*(\d+):\s+(\S+)\s+(\d+)/\d+x(\d+)/\d+([+-]\d+)([+-]\d+)\s+(\S+)\s*$`)

// ParseMonitorList parses `xrandr --listmonitors` output and computes the
// desktop bounding box.
func ParseMonitorList(out string) (Layout, error) {
	var layout Layout

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := monitorLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}

		idx, _ := strconv.Atoi(m[1])
		w, _ := strconv.Atoi(m[3])
		h, _ := strconv.Atoi(m[4])
		x, _ := strconv.Atoi(m[5])
		y, _ := strconv.Atoi(m[6])

		layout.Monitors = append(layout.Monitors, Monitor{
			Index:    idx,
			Name:     m[7],
			Primary:  strings.Contains(m[2], "*"),
			X:        x,
			Y:        y,
			Width:    w,
			Height:   h,
			ScaleX:   1,
			ScaleY:   1,
			Rotation: RotationNormal,
		})
	}

	if len(layout.Monitors) == 0 {
		return layout, fmt.Errorf("no monitors in xrandr output")
	}

	layout.computeBounds()

	return layout, nil
}

func (l *Layout) computeBounds() {
	minX, minY := l.Monitors[0].X, l.Monitors[0].Y
	maxX, maxY := minX, minY

	for _, m := range l.Monitors {
		if m.X < minX {
			minX = m.X
		}

		if m.Y < minY {
			minY = m.Y
		}

		if m.X+m.Width > maxX {
			maxX = m.X + m.Width
		}

		if m.Y+m.Height > maxY {
			maxY = m.Y + m.Height
		}
	}

	l.OriginX = minX
	l.OriginY = minY
	l.Width = maxX - minX
	l.Height = maxY - minY
}

var connectedLine = regexp.MustCompile(`^(\S+) connected(?: primary)? \d+x\d+[+-]\d+[+-]\d+ (?:\(0x[0-9a-f]+\) )?(normal|left|inverted|right)?`)

// ApplyVerboseDetails fills rotation, scale and EDID hash from
// `xrandr --verbose` output. Unknown outputs are ignored.
func ApplyVerboseDetails(layout *Layout, out string) {
	byName := make(map[string]*Monitor, len(layout.Monitors))
	for i := range layout.Monitors {
		byName[layout.Monitors[i].Name] = &layout.Monitors[i]
	}

	var cur *Monitor
	var edid strings.Builder
	inEDID := false
	transformNext := false

	flushEDID := func() {
		if cur != nil && edid.Len() > 0 {
			cur.EDIDHash = fnv1a64([]byte(edid.String()))
		}

		edid.Reset()
		inEDID = false
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()

		if m := connectedLine.FindStringSubmatch(line); m != nil {
			flushEDID()

			cur = byName[m[1]]
			if cur != nil && m[2] != "" {
				cur.Rotation = Rotation(m[2])
			}

			transformNext = false

			continue
		}

		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Transform:"):
			if cur != nil {
				fields := strings.Fields(trimmed)
				if len(fields) >= 2 {
					if v, err := strconv.ParseFloat(fields[1], 64); err == nil && v != 0 {
						cur.ScaleX = v
					}
				}

				transformNext = true
			}

			inEDID = false
		case transformNext:
			// Second transform row: [_, sy, _].
			fields := strings.Fields(trimmed)
			if cur != nil && len(fields) >= 2 {
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil && v != 0 {
					cur.ScaleY = v
				}
			}

			transformNext = false
		case strings.HasPrefix(trimmed, "EDID:"):
			inEDID = true

			edid.Reset()
		case inEDID && isHexLine(trimmed):
			edid.WriteString(trimmed)
		case inEDID:
			flushEDID()
		}
	}

	flushEDID()
}

func isHexLine(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}

	return true
}

// Hash is an FNV-1a 64 digest over the canonical text encoding of the
// snapshot; equal hashes mean same monitors in the same arrangement.
func (l Layout) Hash() uint64 {
	var b strings.Builder

	fmt.Fprintf(&b, "%d,%d,%d,%d;", l.OriginX, l.OriginY, l.Width, l.Height)

	for _, m := range l.Monitors {
		fmt.Fprintf(&b, "%s|%d|%d|%d|%d|%s|%.4f|%.4f|%016x;",
			m.Name, m.X, m.Y, m.Width, m.Height, m.Rotation, m.ScaleX, m.ScaleY, m.EDIDHash)
	}

	return fnv1a64([]byte(b.String()))
}

func fnv1a64(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)

	return h.Sum64()
}

// FindMonitor resolves a monitor by name, or by index when name is empty
// and index >= 0. The primary monitor wins when neither is given.
func (l Layout) FindMonitor(name string, index int) (Monitor, error) {
	if name != "" {
		for _, m := range l.Monitors {
			if m.Name == name {
				return m, nil
			}
		}

		return Monitor{}, fmt.Errorf("no monitor named %q", name)
	}

	if index >= 0 {
		for _, m := range l.Monitors {
			if m.Index == index {
				return m, nil
			}
		}

		return Monitor{}, fmt.Errorf("no monitor with index %d", index)
	}

	for _, m := range l.Monitors {
		if m.Primary {
			return m, nil
		}
	}

	return l.Monitors[0], nil
}
