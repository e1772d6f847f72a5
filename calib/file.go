package calib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	sectionCalibration = "Calibration"
	sectionAffine      = "Affine"
	sectionMetadata    = "Metadata"

	savedWith = "touchcal"
)

// Save writes the calibration in the sectioned key/value format. Extra
// metadata pairs (device id, layout hash) land in the Metadata section.
func Save(c Calibration, path string, meta map[string]string) error {
	f := ini.Empty()

	sec, err := f.NewSection(sectionCalibration)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}

	sec.Key("mode").SetValue(c.Mode.String())
	sec.Key("min_x").SetValue(formatFloat(c.MinX))
	sec.Key("max_x").SetValue(formatFloat(c.MaxX))
	sec.Key("min_y").SetValue(formatFloat(c.MinY))
	sec.Key("max_y").SetValue(formatFloat(c.MaxY))
	sec.Key("screen_width").SetValue(strconv.Itoa(c.ScreenWidth))
	sec.Key("screen_height").SetValue(strconv.Itoa(c.ScreenHeight))
	sec.Key("offset_x").SetValue(strconv.Itoa(c.OffsetX))
	sec.Key("offset_y").SetValue(strconv.Itoa(c.OffsetY))
	sec.Key("margin_percent").SetValue(formatFloat(c.MarginPercent))

	if c.Mode == ModeAffine {
		aff, err := f.NewSection(sectionAffine)
		if err != nil {
			return fmt.Errorf("creating section: %w", err)
		}

		for i, v := range c.Affine {
			aff.Key(fmt.Sprintf("m%d", i)).SetValue(formatFloat(v))
		}
	}

	md, err := f.NewSection(sectionMetadata)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}

	md.Key("saved_with").SetValue(savedWith)
	for k, v := range meta {
		md.Key(k).SetValue(v)
	}

	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("writing calibration file %s: %w", path, err)
	}

	return nil
}

// Load reads a calibration file. Files that do not parse as sectioned
// key/value are retried as the legacy single-line integer format.
func Load(path string) (Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("reading calibration file %s: %w", path, err)
	}

	f, err := ini.Load(raw)
	if err != nil || !f.HasSection(sectionCalibration) {
		c, legacyErr := parseLegacy(string(raw))
		if legacyErr != nil {
			return Calibration{}, fmt.Errorf("parsing %s: %w", path, legacyErr)
		}

		return c, nil
	}

	c := Default()
	sec := f.Section(sectionCalibration)

	if sec.Key("mode").String() == ModeAffine.String() {
		c.Mode = ModeAffine
	}

	c.MinX = sec.Key("min_x").MustFloat64(c.MinX)
	c.MaxX = sec.Key("max_x").MustFloat64(c.MaxX)
	c.MinY = sec.Key("min_y").MustFloat64(c.MinY)
	c.MaxY = sec.Key("max_y").MustFloat64(c.MaxY)
	c.ScreenWidth = sec.Key("screen_width").MustInt(c.ScreenWidth)
	c.ScreenHeight = sec.Key("screen_height").MustInt(c.ScreenHeight)
	c.OffsetX = sec.Key("offset_x").MustInt(0)
	c.OffsetY = sec.Key("offset_y").MustInt(0)
	c.MarginPercent = sec.Key("margin_percent").MustFloat64(0)

	if c.Mode == ModeAffine && f.HasSection(sectionAffine) {
		aff := f.Section(sectionAffine)
		for i := range c.Affine {
			c.Affine[i] = aff.Key(fmt.Sprintf("m%d", i)).MustFloat64(0)
		}
	}

	return c, nil
}

// Metadata returns the Metadata section of a calibration file, or an empty
// map for legacy files.
func Metadata(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file %s: %w", path, err)
	}

	out := make(map[string]string)

	f, err := ini.Load(raw)
	if err != nil || !f.HasSection(sectionMetadata) {
		return out, nil
	}

	for _, k := range f.Section(sectionMetadata).Keys() {
		out[k.Name()] = k.String()
	}

	return out, nil
}

// parseLegacy accepts eight whitespace-separated integers:
// min_x max_x min_y max_y screen_w screen_h off_x off_y.
func parseLegacy(raw string) (Calibration, error) {
	fields := strings.Fields(raw)
	if len(fields) != 8 {
		return Calibration{}, fmt.Errorf("expected 8 fields in legacy calibration, got %d", len(fields))
	}

	nums := make([]int, 8)
	for i, s := range fields {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Calibration{}, fmt.Errorf("legacy field %d: %w", i, err)
		}

		nums[i] = n
	}

	c := Default()
	c.SetMinMax(float64(nums[0]), float64(nums[1]), float64(nums[2]), float64(nums[3]))
	c.ScreenWidth = nums[4]
	c.ScreenHeight = nums[5]
	c.OffsetX = nums[6]
	c.OffsetY = nums[7]

	return c, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
