package touchcal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkovalev/touchcal/calib"
	"github.com/dkovalev/touchcal/db"
	"github.com/dkovalev/touchcal/touch"
	"github.com/spf13/cobra"
)

// trackCmd represents the track command.
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Read a touch device and log calibrated events",
	Long: `Open an input device (or auto-detect one), apply the calibration and
print every recognised touch and gesture event until interrupted.
Events are also recorded to a sqlite file for later inspection with stats.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		reader := touch.NewReader()

		if calibFile != "" {
			c, err := calib.Load(calibFile)
			if err != nil {
				return err
			}

			reader.SetCalibration(c)
			slog.InfoContext(cmdCtx, "calibration loaded", "path", calibFile, "mode", c.Mode)
		}

		if screenWidth > 0 && screenHeight > 0 {
			reader.SetScreenSize(screenWidth, screenHeight)
		}

		var err error
		if devicePath != "" {
			err = reader.Start(devicePath)
		} else if autoDetect {
			err = reader.StartAuto()
		} else {
			return fmt.Errorf("provide --device or --auto")
		}

		if err != nil {
			return err
		}

		defer reader.Stop()

		slog.InfoContext(cmdCtx, "tracking", "device", reader.SelectedDevice())

		if mitm {
			if err := reader.EnableMITM(true, grabSource); err != nil {
				return err
			}
		}

		var storage db.Storage
		if storagePath != "" {
			storage, err = db.ConnectDB(storagePath)
			if err != nil {
				return fmt.Errorf("could not open %s as sqlite file: %w", storagePath, err)
			}

			defer storage.Close()
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sigCh:
				slog.InfoContext(cmdCtx, "interrupted, shutting down")

				return nil
			default:
			}

			event, ok := reader.WaitForEvent(500)
			if !ok {
				continue
			}

			fmt.Printf("%-12s count=%d x=%d y=%d value=%d\n",
				event.Type, event.TouchCount, event.X, event.Y, event.Value)

			if storage != nil {
				if err := storage.Store(&event); err != nil {
					slog.WarnContext(cmdCtx, "storing event", "error", err)
				}
			}
		}
	},
}

var (
	devicePath   string
	autoDetect   bool
	mitm         bool
	grabSource   bool
	calibFile    string
	storagePath  string
	screenWidth  int
	screenHeight int
)

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVarP(
		&devicePath,
		"device",
		"d",
		"",
		"Input device node to read, e.g. /dev/input/event5")

	trackCmd.Flags().BoolVar(&autoDetect,
		"auto",
		false,
		"Auto-detect the first usable input device")

	trackCmd.Flags().BoolVar(&mitm,
		"mitm",
		false,
		"Re-inject the calibrated stream through a synthetic uinput device")

	trackCmd.Flags().BoolVar(&grabSource,
		"grab",
		false,
		"Grab the source device exclusively while injecting")

	trackCmd.Flags().StringVar(
		&calibFile,
		"load",
		"",
		"Calibration file to apply before reading")

	trackCmd.Flags().StringVarP(
		&storagePath,
		"out",
		"o",
		"./touches.sqlite",
		"Output path for the event log (empty disables recording)")

	trackCmd.Flags().IntVar(&screenWidth,
		"screen-width",
		0,
		"Target screen width in pixels (0 keeps the calibration default)")

	trackCmd.Flags().IntVar(&screenHeight,
		"screen-height",
		0,
		"Target screen height in pixels (0 keeps the calibration default)")
}
