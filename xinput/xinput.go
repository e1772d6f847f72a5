package xinput

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dkovalev/touchcal/desktop"
	"github.com/dkovalev/touchcal/logging"
	"github.com/dkovalev/touchcal/touch"
)

var xinputCtx = logging.PackageCtx("xinput")

// runCommand is swapped out in tests.
var runCommand = func(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("running %s %s: %w", name, strings.Join(args, " "), err)
	}

	return string(out), nil
}

// Device is one row of `xinput list`.
type Device struct {
	ID   int
	Name string
}

// EnumerateDevices lists every xinput device with its numeric id.
func EnumerateDevices() ([]Device, error) {
	out, err := runCommand("xinput", "list")
	if err != nil {
		return nil, err
	}

	return ParseDeviceList(out), nil
}

var deviceLine = regexp.MustCompile(`^(.*?)\s+id=(\d+)\s`)

// ParseDeviceList extracts id/name pairs from `xinput list` output,
// dropping the tree decorations.
func ParseDeviceList(out string) []Device {
	var devices []Device

	for _, line := range strings.Split(out, "\n") {
		m := deviceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		id, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		name := strings.Trim(m[1], "⎡⎜⎣↳∼~ \t")
		if name == "" {
			continue
		}

		devices = append(devices, Device{ID: id, Name: name})
	}

	return devices
}

// DeviceName resolves an id to the name xinput reports for it.
func DeviceName(id int) (string, error) {
	devices, err := EnumerateDevices()
	if err != nil {
		return "", err
	}

	for _, d := range devices {
		if d.ID == id {
			return d.Name, nil
		}
	}

	return "", fmt.Errorf("no xinput device with id %d", id)
}

var deviceNodeProp = regexp.MustCompile(`Device Node \(\d+\):\s+"([^"]+)"`)
var anyEventNode = regexp.MustCompile(`(/dev/input/event\d+)`)

// DevicePath maps an xinput id to its event-node path. Strategies in
// order: the Device Node property, a by-id/by-path symlink search on the
// device name, any event node mentioned in the property dump. Returns ""
// when nothing matches.
func DevicePath(id int) string {
	props, propsErr := runCommand("xinput", "list-props", strconv.Itoa(id))
	if propsErr == nil {
		if m := deviceNodeProp.FindStringSubmatch(props); m != nil {
			return m[1]
		}
	}

	if name, err := DeviceName(id); err == nil {
		if path := searchSymlinks(name); path != "" {
			return path
		}
	}

	if propsErr == nil {
		if m := anyEventNode.FindStringSubmatch(props); m != nil {
			return m[1]
		}
	}

	slog.DebugContext(xinputCtx, "no event node found for device", "id", id)

	return ""
}

// searchSymlinks walks /dev/input/by-id and /dev/input/by-path for links
// whose name contains the device name with each space replaced by an
// underscore, compared case-insensitively.
func searchSymlinks(name string) string {
	needle := strings.ToLower(strings.ReplaceAll(name, " ", "_"))

	for _, dir := range []string{"/dev/input/by-id", "/dev/input/by-path"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, e := range entries {
			if !strings.Contains(strings.ToLower(e.Name()), needle) {
				continue
			}

			resolved, err := filepath.EvalSymlinks(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}

			return resolved
		}
	}

	return ""
}

var wacomArea = regexp.MustCompile(`Wacom Tablet Area \(\d+\):\s+(-?\d+),\s*(-?\d+),\s*(-?\d+),\s*(-?\d+)`)

// AbsRange reports the raw maxima of ABS_X and ABS_Y for a device. The
// kernel query on the event node wins; the Wacom Tablet Area property is
// the fallback.
func AbsRange(id int, path string) (int, int, error) {
	if path != "" {
		maxX, maxY, err := touch.AbsMaxima(path)
		if err == nil {
			return maxX, maxY, nil
		}

		slog.DebugContext(xinputCtx, "kernel abs query failed, trying property fallback",
			"path", path, "error", err)
	}

	props, err := runCommand("xinput", "list-props", strconv.Itoa(id))
	if err != nil {
		return 0, 0, err
	}

	maxX, maxY, ok := ParseWacomArea(props)
	if !ok {
		return 0, 0, fmt.Errorf("no absolute range available for device %d", id)
	}

	return maxX, maxY, nil
}

// ParseWacomArea extracts the tablet area maxima from a property dump.
func ParseWacomArea(props string) (int, int, bool) {
	m := wacomArea.FindStringSubmatch(props)
	if m == nil {
		return 0, 0, false
	}

	maxX, _ := strconv.Atoi(m[3])
	maxY, _ := strconv.Atoi(m[4])

	return maxX, maxY, true
}

// toolSuffixes in match order; longer suffixes first so " pen stylus" is
// not cut down to " stylus".
var toolSuffixes = []string{
	" pen stylus", " pen eraser", " pen cursor", " pen pen", " pen pad",
	" stylus", " eraser", " cursor", " pad", " touch",
}

// FamilyName strips any trailing tool suffix from a trimmed, lower-cased
// device name, leaving the name shared by related tools of one tablet.
func FamilyName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	for _, suffix := range toolSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(lower, suffix))
		}
	}

	return lower
}

// RelatedDeviceIDs returns id followed by every device sharing its family
// name, optionally skipping pad tools.
func RelatedDeviceIDs(id int, excludePads bool) ([]int, error) {
	devices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}

	return relatedFrom(devices, id, excludePads)
}

func relatedFrom(devices []Device, id int, excludePads bool) ([]int, error) {
	var base *Device
	for i := range devices {
		if devices[i].ID == id {
			base = &devices[i]

			break
		}
	}

	if base == nil {
		return nil, fmt.Errorf("no xinput device with id %d", id)
	}

	family := FamilyName(base.Name)
	ids := []int{id}

	for _, d := range devices {
		if d.ID == id || FamilyName(d.Name) != family {
			continue
		}

		if excludePads && strings.Contains(strings.ToLower(d.Name), "pad") {
			continue
		}

		ids = append(ids, d.ID)
	}

	return ids, nil
}

const ctmProperty = "Coordinate Transformation Matrix"

// ApplyCTM pushes the matrix to every listed device id.
func ApplyCTM(ids []int, ctm desktop.CTM) error {
	args := make([]string, 0, 12)

	for _, id := range ids {
		args = args[:0]
		args = append(args, "set-prop", strconv.Itoa(id), ctmProperty)

		for _, v := range ctm {
			args = append(args, strconv.FormatFloat(v, 'f', 6, 64))
		}

		if _, err := runCommand("xinput", args...); err != nil {
			return fmt.Errorf("setting transformation matrix on device %d: %w", id, err)
		}

		slog.InfoContext(xinputCtx, "transformation matrix applied", "id", id)
	}

	return nil
}

var ctmProp = regexp.MustCompile(`Coordinate Transformation Matrix \(\d+\):\s+(.+)`)

// ReadCTM parses the current matrix of a device.
func ReadCTM(id int) (desktop.CTM, error) {
	props, err := runCommand("xinput", "list-props", strconv.Itoa(id))
	if err != nil {
		return desktop.CTM{}, err
	}

	return ParseCTM(props)
}

// ParseCTM extracts the nine matrix values from a property dump.
func ParseCTM(props string) (desktop.CTM, error) {
	m := ctmProp.FindStringSubmatch(props)
	if m == nil {
		return desktop.CTM{}, fmt.Errorf("no transformation matrix in properties")
	}

	fields := strings.Split(m[1], ",")
	if len(fields) != 9 {
		return desktop.CTM{}, fmt.Errorf("expected 9 matrix values, got %d", len(fields))
	}

	var ctm desktop.CTM
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return desktop.CTM{}, fmt.Errorf("matrix value %d: %w", i, err)
		}

		ctm[i] = v
	}

	return ctm, nil
}
