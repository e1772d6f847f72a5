package desktop

// CTM is a 3x3 row-major coordinate transformation matrix, normalised to
// the desktop so the input device's unit square lands on one monitor.
type CTM [9]float64

// Identity maps the device onto the full desktop.
func Identity() CTM {
	return CTM{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// ComputeCTM builds the matrix placing the device onto one monitor,
// honouring the monitor's rotation and scale.
func ComputeCTM(layout Layout, m Monitor) CTM {
	dw := float64(layout.Width)
	dh := float64(layout.Height)
	if dw == 0 {
		dw = 1
	}
	if dh == 0 {
		dh = 1
	}

	w := float64(m.Width) * m.ScaleX
	h := float64(m.Height) * m.ScaleY
	ox := float64(m.X - layout.OriginX)
	oy := float64(m.Y - layout.OriginY)

	ctm := Identity()

	switch m.Rotation {
	case RotationInverted:
		ctm[0] = -w / dw
		ctm[1] = 0
		ctm[2] = (ox + w) / dw
		ctm[3] = 0
		ctm[4] = -h / dh
		ctm[5] = (oy + h) / dh
	case RotationLeft:
		ctm[0] = 0
		ctm[1] = h / dw
		ctm[2] = ox / dw
		ctm[3] = -w / dh
		ctm[4] = 0
		ctm[5] = (oy + w) / dh
	case RotationRight:
		ctm[0] = 0
		ctm[1] = -h / dw
		ctm[2] = (ox + h) / dw
		ctm[3] = w / dh
		ctm[4] = 0
		ctm[5] = oy / dh
	default:
		ctm[0] = w / dw
		ctm[1] = 0
		ctm[2] = ox / dw
		ctm[3] = 0
		ctm[4] = h / dh
		ctm[5] = oy / dh
	}

	return ctm
}
