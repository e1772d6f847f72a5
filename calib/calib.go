package calib

import "math"

// Mode selects which transform Map applies.
type Mode int

const (
	ModeMinMax Mode = iota
	ModeAffine
)

func (m Mode) String() string {
	if m == ModeAffine {
		return "affine"
	}

	return "minmax"
}

// Default raw bounds match a common large-area digitizer; the screen
// default is a 800x480 panel.
const (
	DefaultMaxX         = 40640
	DefaultMaxY         = 30480
	DefaultScreenWidth  = 800
	DefaultScreenHeight = 480
)

// Calibration maps raw device coordinates onto a screen region. The value
// is owned by the reader; mutate it only through the reader's setters.
type Calibration struct {
	Mode Mode

	MinX, MaxX float64
	MinY, MaxY float64

	// Affine holds a0..a5 such that
	// sx = a0*rx + a1*ry + a2, sy = a3*rx + a4*ry + a5.
	Affine [6]float64

	ScreenWidth  int
	ScreenHeight int
	OffsetX      int
	OffsetY      int

	// MarginPercent is informational: it is applied while fitting the
	// bounds, not on every mapped point.
	MarginPercent float64
}

// Default returns a min/max calibration with the stock bounds.
func Default() Calibration {
	return Calibration{
		Mode:         ModeMinMax,
		MinX:         0,
		MaxX:         DefaultMaxX,
		MinY:         0,
		MaxY:         DefaultMaxY,
		ScreenWidth:  DefaultScreenWidth,
		ScreenHeight: DefaultScreenHeight,
	}
}

// Map transforms a raw point into calibrated screen coordinates.
func (c *Calibration) Map(rawX, rawY int) (int, int) {
	if c.Mode == ModeAffine {
		return c.mapAffine(float64(rawX), float64(rawY))
	}

	return c.mapMinMax(float64(rawX), float64(rawY))
}

func (c *Calibration) mapMinMax(rx, ry float64) (int, int) {
	x := mapAxis(rx, c.MinX, c.MaxX, c.ScreenWidth, c.OffsetX)
	y := mapAxis(ry, c.MinY, c.MaxY, c.ScreenHeight, c.OffsetY)

	return x, y
}

func mapAxis(raw, lo, hi float64, dim, offset int) int {
	raw = clampF(raw, lo, hi)

	span := hi - lo
	if span == 0 {
		span = 1
	}

	scale := float64(dim - 1)
	if scale < 0 {
		scale = 0
	}

	v := (raw-lo)/span*scale + float64(offset)
	v = clampF(v, float64(offset), float64(offset+dim-1))

	return int(math.Round(v))
}

func (c *Calibration) mapAffine(rx, ry float64) (int, int) {
	a := c.Affine
	sx := a[0]*rx + a[1]*ry + a[2] + float64(c.OffsetX)
	sy := a[3]*rx + a[4]*ry + a[5] + float64(c.OffsetY)

	sx = clampF(sx, float64(c.OffsetX), float64(c.OffsetX+c.ScreenWidth-1))
	sy = clampF(sy, float64(c.OffsetY), float64(c.OffsetY+c.ScreenHeight-1))

	return int(math.Round(sx)), int(math.Round(sy))
}

// SetMinMax installs raw-space bounds and switches to min/max mode.
func (c *Calibration) SetMinMax(minX, maxX, minY, maxY float64) {
	c.Mode = ModeMinMax
	c.MinX, c.MaxX = minX, maxX
	c.MinY, c.MaxY = minY, maxY
}

// SetAffine installs the six coefficients and switches to affine mode.
func (c *Calibration) SetAffine(coeffs [6]float64) {
	c.Mode = ModeAffine
	c.Affine = coeffs
}

func (c *Calibration) SetMargin(percent float64) {
	c.MarginPercent = percent
}

func (c *Calibration) SetOffset(x, y int) {
	c.OffsetX = x
	c.OffsetY = y
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
