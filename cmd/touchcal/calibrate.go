package touchcal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkovalev/touchcal/calib"
	"github.com/dkovalev/touchcal/model"
	"github.com/dkovalev/touchcal/touch"
	"github.com/spf13/cobra"
)

const cornerTimeout = 15 * time.Second

var cornerNames = [4]string{"top-left", "top-right", "bottom-right", "bottom-left"}

// calibrateCmd represents the calibrate command.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Run the four-corner calibration handshake",
	Long: `Prompt for a touch in each screen corner, fit a calibration from the
captured raw samples and optionally save it for later use with track.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if calWidth <= 0 || calHeight <= 0 {
			return fmt.Errorf("screen size %dx%d is not usable", calWidth, calHeight)
		}

		reader := touch.NewReader()
		reader.SetScreenSize(calWidth, calHeight)

		var err error
		if calDevice != "" {
			err = reader.Start(calDevice)
		} else {
			err = reader.StartAuto()
		}

		if err != nil {
			return err
		}

		defer reader.Stop()

		fmt.Printf("Calibrating %s for a %dx%d screen.\n", reader.SelectedDevice(), calWidth, calHeight)

		inset := min(calWidth, calHeight) / 10
		targets := calib.CornerTargets(calWidth, calHeight, inset)

		var raw [4]calib.Point

		for i := range targets {
			fmt.Printf("Touch the %s corner, near (%.0f, %.0f), then release.\n",
				cornerNames[i], targets[i].X, targets[i].Y)

			p, err := captureCorner(reader)
			if err != nil {
				return fmt.Errorf("capturing %s corner: %w", cornerNames[i], err)
			}

			raw[i] = p
			fmt.Printf("  captured raw (%.0f, %.0f)\n", p.X, p.Y)
		}

		var c calib.Calibration

		if calAffine {
			coeffs, err := calib.FitAffine(raw, targets)
			if errors.Is(err, calib.ErrDegenerate) {
				slog.WarnContext(cmdCtx, "affine fit degenerate, falling back to default min/max bounds")

				c = calib.Default()
				c.ScreenWidth = calWidth
				c.ScreenHeight = calHeight
				c.SetMinMax(0, 4095, 0, 4095)
			} else if err != nil {
				return err
			} else {
				c = calib.Default()
				c.ScreenWidth = calWidth
				c.ScreenHeight = calHeight
				c.SetAffine(coeffs)
			}
		} else {
			c = calib.FitMinMax(raw, calWidth, calHeight, calMargin)
		}

		reader.SetCalibration(c)
		fmt.Printf("Calibration installed (mode %s).\n", c.Mode)

		if calSave != "" {
			meta := map[string]string{"device": reader.SelectedDevice()}
			if err := calib.Save(c, calSave, meta); err != nil {
				return err
			}

			fmt.Printf("Saved to %s.\n", calSave)
		}

		return nil
	},
}

// captureCorner waits for one press/release cycle and returns the raw
// coordinates held just before release.
func captureCorner(reader *touch.Reader) (calib.Point, error) {
	reader.ClearEvents()

	var last calib.Point
	haveSample := false
	deadline := time.Now().Add(cornerTimeout)

	for time.Now().Before(deadline) {
		event, ok := reader.WaitForEvent(500)
		if !ok {
			continue
		}

		switch event.Type {
		case model.TouchDown, model.TouchMove:
			if len(event.Touches) > 0 {
				last = calib.Point{X: float64(event.Touches[0].RawX), Y: float64(event.Touches[0].RawY)}
				haveSample = true
			}
		case model.TouchUp:
			if haveSample {
				return last, nil
			}
		}
	}

	return calib.Point{}, fmt.Errorf("no touch within %s", cornerTimeout)
}

var (
	calWidth  int
	calHeight int
	calAffine bool
	calMargin float64
	calDevice string
	calSave   string
)

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().IntVar(&calWidth, "width", calib.DefaultScreenWidth,
		"Screen width in pixels")

	calibrateCmd.Flags().IntVar(&calHeight, "height", calib.DefaultScreenHeight,
		"Screen height in pixels")

	calibrateCmd.Flags().BoolVar(&calAffine,
		"affine",
		false,
		"Fit a full affine transform instead of per-axis min/max")

	calibrateCmd.Flags().Float64Var(&calMargin,
		"margin",
		0,
		"Shrink fitted edges inward by this percent of the range")

	calibrateCmd.Flags().StringVarP(
		&calDevice,
		"device",
		"d",
		"",
		"Input device node to calibrate (auto-detected when empty)")

	calibrateCmd.Flags().StringVar(
		&calSave,
		"save",
		"",
		"Write the fitted calibration to this file")
}
