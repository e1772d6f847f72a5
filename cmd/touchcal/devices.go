package touchcal

import (
	"fmt"

	"github.com/dkovalev/touchcal/touch"
	"github.com/dkovalev/touchcal/xinput"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const udevHelp = `Reading /dev/input/event* usually requires membership in the "input"
group or a udev rule. To grant access to a specific device, create
/etc/udev/rules.d/99-touchcal.rules with a line like:

  SUBSYSTEM=="input", ATTRS{name}=="<device name>", MODE="0660", GROUP="input"

then reload with "udevadm control --reload" and replug the device.
Injection additionally needs write access to /dev/uinput.`

// devicesCmd represents the devices command.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input device nodes and X input devices",
	Long: `Enumerate the kernel input nodes under /dev/input and the devices the
display server knows about. With --probe each node is opened and
classified by its reported capabilities.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if udevHint {
			fmt.Println(udevHelp)

			return nil
		}

		paths, err := touch.ListInputDevices()
		if err != nil {
			return err
		}

		if probeDevices {
			bar := progressbar.Default(int64(len(paths)), "Probing devices...")

			type probed struct {
				path string
				caps touch.Capabilities
				err  error
			}

			results := make([]probed, 0, len(paths))
			for _, path := range paths {
				caps, err := touch.Probe(path)
				results = append(results, probed{path, caps, err})
				_ = bar.Add(1)
			}

			_ = bar.Finish()

			for _, r := range results {
				if r.err != nil {
					fmt.Printf("%-24s unusable: %v\n", r.path, r.err)

					continue
				}

				fmt.Printf("%-24s %-12s %q", r.path, r.caps.Kind, r.caps.Name)
				if r.caps.HasBtnTouch {
					fmt.Print(" [touch key]")
				}

				fmt.Println()
			}
		} else {
			for _, path := range paths {
				fmt.Println(path)
			}
		}

		xdevs, err := xinput.EnumerateDevices()
		if err != nil {
			fmt.Printf("\nxinput unavailable: %v\n", err)

			return nil
		}

		fmt.Println("\nX input devices:")
		for _, d := range xdevs {
			fmt.Printf("  %3d  %s\n", d.ID, d.Name)
		}

		return nil
	},
}

var (
	probeDevices bool
	udevHint     bool
)

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&probeDevices,
		"probe",
		false,
		"Open every node and report its capabilities")

	devicesCmd.Flags().BoolVar(&udevHint,
		"udev-help",
		false,
		"Print hints for granting device access without root")
}
