package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dkovalev/touchcal/desktop"
	"gopkg.in/ini.v1"
)

const (
	sectionProfile = "Profile"
	sectionLayout  = "Layout"
	sectionCTM     = "CTM"
)

// ProfileData captures one device-to-monitor mapping with enough layout
// context to decide whether it can be reapplied verbatim.
type ProfileData struct {
	DeviceID       int
	DeviceName     string
	LayoutHash     uint64
	Monitor        desktop.Monitor
	IncludeRelated bool
	ToolFilters    []string
	OriginX        int
	OriginY        int
	Width          int
	Height         int
	CTM            desktop.CTM
}

// FromLayout fills the layout fields of a profile from a snapshot.
func (p *ProfileData) FromLayout(layout desktop.Layout) {
	p.LayoutHash = layout.Hash()
	p.OriginX = layout.OriginX
	p.OriginY = layout.OriginY
	p.Width = layout.Width
	p.Height = layout.Height
}

// Matches reports whether the saved layout hash equals the live one.
func (p ProfileData) Matches(layout desktop.Layout) bool {
	return p.LayoutHash == layout.Hash()
}

// Save writes the profile to path in the sectioned key/value format.
func Save(p ProfileData, path string) error {
	f := ini.Empty()

	sec, err := f.NewSection(sectionProfile)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}

	sec.Key("device_id").SetValue(strconv.Itoa(p.DeviceID))
	sec.Key("device_name").SetValue(p.DeviceName)
	sec.Key("layout_hash").SetValue(fmt.Sprintf("%016x", p.LayoutHash))
	sec.Key("monitor_name").SetValue(p.Monitor.Name)
	sec.Key("monitor_index").SetValue(strconv.Itoa(p.Monitor.Index))
	sec.Key("monitor_x").SetValue(strconv.Itoa(p.Monitor.X))
	sec.Key("monitor_y").SetValue(strconv.Itoa(p.Monitor.Y))
	sec.Key("monitor_width").SetValue(strconv.Itoa(p.Monitor.Width))
	sec.Key("monitor_height").SetValue(strconv.Itoa(p.Monitor.Height))
	sec.Key("monitor_rotation").SetValue(string(p.Monitor.Rotation))
	sec.Key("monitor_scale_x").SetValue(formatFloat(p.Monitor.ScaleX))
	sec.Key("monitor_scale_y").SetValue(formatFloat(p.Monitor.ScaleY))
	sec.Key("include_related").SetValue(strconv.FormatBool(p.IncludeRelated))
	sec.Key("tool_filters").SetValue(strings.Join(p.ToolFilters, ","))

	lay, err := f.NewSection(sectionLayout)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}

	lay.Key("origin_x").SetValue(strconv.Itoa(p.OriginX))
	lay.Key("origin_y").SetValue(strconv.Itoa(p.OriginY))
	lay.Key("width").SetValue(strconv.Itoa(p.Width))
	lay.Key("height").SetValue(strconv.Itoa(p.Height))

	ctm, err := f.NewSection(sectionCTM)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}

	for i, v := range p.CTM {
		ctm.Key(fmt.Sprintf("m%d", i)).SetValue(formatFloat(v))
	}

	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("writing profile %s: %w", path, err)
	}

	return nil
}

// Load reads a profile file written by Save.
func Load(path string) (ProfileData, error) {
	f, err := ini.Load(path)
	if err != nil {
		return ProfileData{}, fmt.Errorf("reading profile %s: %w", path, err)
	}

	if !f.HasSection(sectionProfile) {
		return ProfileData{}, fmt.Errorf("no Profile section in %s", path)
	}

	var p ProfileData

	sec := f.Section(sectionProfile)
	p.DeviceID = sec.Key("device_id").MustInt(-1)
	p.DeviceName = sec.Key("device_name").String()

	hash, err := strconv.ParseUint(sec.Key("layout_hash").String(), 16, 64)
	if err != nil {
		return ProfileData{}, fmt.Errorf("layout_hash in %s: %w", path, err)
	}

	p.LayoutHash = hash

	p.Monitor = desktop.Monitor{
		Name:     sec.Key("monitor_name").String(),
		Index:    sec.Key("monitor_index").MustInt(0),
		X:        sec.Key("monitor_x").MustInt(0),
		Y:        sec.Key("monitor_y").MustInt(0),
		Width:    sec.Key("monitor_width").MustInt(0),
		Height:   sec.Key("monitor_height").MustInt(0),
		Rotation: desktop.Rotation(sec.Key("monitor_rotation").MustString(string(desktop.RotationNormal))),
		ScaleX:   sec.Key("monitor_scale_x").MustFloat64(1),
		ScaleY:   sec.Key("monitor_scale_y").MustFloat64(1),
	}

	p.IncludeRelated = sec.Key("include_related").MustBool(false)

	if filters := sec.Key("tool_filters").String(); filters != "" {
		for _, part := range strings.Split(filters, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				p.ToolFilters = append(p.ToolFilters, part)
			}
		}
	}

	lay := f.Section(sectionLayout)
	p.OriginX = lay.Key("origin_x").MustInt(0)
	p.OriginY = lay.Key("origin_y").MustInt(0)
	p.Width = lay.Key("width").MustInt(0)
	p.Height = lay.Key("height").MustInt(0)

	ctm := f.Section(sectionCTM)
	for i := range p.CTM {
		p.CTM[i] = ctm.Key(fmt.Sprintf("m%d", i)).MustFloat64(0)
	}

	return p, nil
}

// Summary is one row of List output.
type Summary struct {
	Name        string
	Path        string
	DeviceName  string
	MonitorName string
}

// List scans dir for *.ini profiles, skipping files that fail to parse.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile dir %s: %w", dir, err)
	}

	var out []Summary

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ini") {
			continue
		}

		path := filepath.Join(dir, e.Name())

		p, err := Load(path)
		if err != nil {
			continue
		}

		out = append(out, Summary{
			Name:        strings.TrimSuffix(e.Name(), ".ini"),
			Path:        path,
			DeviceName:  p.DeviceName,
			MonitorName: p.Monitor.Name,
		})
	}

	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
