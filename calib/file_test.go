package calib_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dkovalev/touchcal/calib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadAffineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.ini")

	c := calib.Default()
	c.SetAffine([6]float64{0.195312, -0.001221, 3.5, 0.000733, 0.117187, -12.25})
	c.ScreenWidth = 1920
	c.ScreenHeight = 1080
	c.SetOffset(100, 50)
	c.SetMargin(0.75)

	require.NoError(t, calib.Save(c, path, nil))

	got, err := calib.Load(path)
	require.NoError(t, err)

	assert.Equal(t, calib.ModeAffine, got.Mode)
	for i := range c.Affine {
		assert.InDelta(t, c.Affine[i], got.Affine[i], 1e-6)
	}
	assert.Equal(t, 1920, got.ScreenWidth)
	assert.Equal(t, 1080, got.ScreenHeight)
	assert.Equal(t, 100, got.OffsetX)
	assert.Equal(t, 50, got.OffsetY)
	assert.InDelta(t, 0.75, got.MarginPercent, 1e-6)
}

func TestSaveLoadMinMaxRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.ini")

	c := calib.FitMinMax([4]calib.Point{{100, 110}, {4000, 105}, {3990, 3900}, {95, 3890}}, 800, 480, 2)
	require.NoError(t, calib.Save(c, path, map[string]string{"device_name": "usb tablet"}))

	got, err := calib.Load(path)
	require.NoError(t, err)

	assert.Equal(t, calib.ModeMinMax, got.Mode)
	assert.InDelta(t, c.MinX, got.MinX, 1e-6)
	assert.InDelta(t, c.MaxX, got.MaxX, 1e-6)
	assert.InDelta(t, c.MinY, got.MinY, 1e-6)
	assert.InDelta(t, c.MaxY, got.MaxY, 1e-6)

	meta, err := calib.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, "usb tablet", meta["device_name"])
	assert.Equal(t, "touchcal", meta["saved_with"])
}

func TestLoadLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.dat")
	require.NoError(t, os.WriteFile(path, []byte("120 3980 130 3890 800 480 10 20\n"), 0o644))

	got, err := calib.Load(path)
	require.NoError(t, err)

	assert.Equal(t, calib.ModeMinMax, got.Mode)
	assert.InDelta(t, 120, got.MinX, 1e-9)
	assert.InDelta(t, 3980, got.MaxX, 1e-9)
	assert.InDelta(t, 130, got.MinY, 1e-9)
	assert.InDelta(t, 3890, got.MaxY, 1e-9)
	assert.Equal(t, 800, got.ScreenWidth)
	assert.Equal(t, 480, got.ScreenHeight)
	assert.Equal(t, 10, got.OffsetX)
	assert.Equal(t, 20, got.OffsetY)
}

func TestLoadUnknownKeysTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.ini")
	content := `[Calibration]
mode=minmax
min_x=10.000000
max_x=4000.000000
min_y=20.000000
max_y=3900.000000
screen_width=1024
screen_height=600
offset_x=0
offset_y=0
margin_percent=0.000000
future_knob=42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := calib.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, got.ScreenWidth)
	assert.InDelta(t, 10, got.MinX, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := calib.Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.ini")
	require.NoError(t, os.WriteFile(path, []byte("not a calibration\n"), 0o644))

	_, err := calib.Load(path)
	assert.Error(t, err)
}
