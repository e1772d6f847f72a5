package touchcal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dkovalev/touchcal/desktop"
	"github.com/dkovalev/touchcal/xinput"
	"github.com/spf13/cobra"
)

// mapCmd represents the map command.
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map an input device onto a monitor",
	Long: `Compute the coordinate transformation matrix confining a device to one
monitor and apply it through the display server. Related tools of the
same tablet are mapped together unless --no-related is given.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if mapDeviceID < 0 {
			return fmt.Errorf("provide --device-id")
		}

		targeted := mapFull || mapReset || mapMonitor != "" || mapMonitorIndex >= 0
		if !targeted {
			return fmt.Errorf("provide one of --monitor, --monitor-index, --full or --reset")
		}

		ids, err := resolveTargetIDs(mapDeviceID, mapNoRelated, mapToolFilters)
		if err != nil {
			return err
		}

		if mapFull || mapReset {
			if err := xinput.ApplyCTM(ids, desktop.Identity()); err != nil {
				return err
			}

			fmt.Printf("Reset %d device(s) to the full desktop.\n", len(ids))

			return nil
		}

		layout, err := desktop.DetectLayout()
		if err != nil {
			return err
		}

		monitor, err := layout.FindMonitor(mapMonitor, mapMonitorIndex)
		if err != nil {
			return err
		}

		ctm := desktop.ComputeCTM(layout, monitor)
		if err := xinput.ApplyCTM(ids, ctm); err != nil {
			return err
		}

		fmt.Printf("Mapped %d device(s) to %s.\n", len(ids), monitor.Name)

		return nil
	},
}

// resolveTargetIDs expands a device id to its tablet family, honouring the
// related toggle and name filters. The base id always stays first.
func resolveTargetIDs(id int, noRelated bool, filters []string) ([]int, error) {
	if noRelated {
		if _, err := xinput.DeviceName(id); err != nil {
			return nil, err
		}

		return []int{id}, nil
	}

	ids, err := xinput.RelatedDeviceIDs(id, true)
	if err != nil {
		return nil, err
	}

	if len(filters) == 0 {
		return ids, nil
	}

	filtered := []int{ids[0]}

	for _, related := range ids[1:] {
		name, err := xinput.DeviceName(related)
		if err != nil {
			slog.WarnContext(cmdCtx, "resolving related device name", "id", related, "error", err)

			continue
		}

		lower := strings.ToLower(name)
		for _, f := range filters {
			if strings.Contains(lower, strings.ToLower(f)) {
				filtered = append(filtered, related)

				break
			}
		}
	}

	return filtered, nil
}

var (
	mapDeviceID     int
	mapMonitor      string
	mapMonitorIndex int
	mapFull         bool
	mapReset        bool
	mapNoRelated    bool
	mapToolFilters  []string
)

func init() {
	rootCmd.AddCommand(mapCmd)
	registerMappingFlags(mapCmd)

	mapCmd.Flags().BoolVar(&mapFull,
		"full",
		false,
		"Map the device to the whole desktop")

	mapCmd.Flags().BoolVar(&mapReset,
		"reset",
		false,
		"Reset the transformation matrix to identity")
}

// registerMappingFlags is shared with "profile save", which persists the
// same selection instead of applying it once.
func registerMappingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&mapDeviceID, "device-id", -1,
		"X input device id (see devices)")

	cmd.Flags().StringVar(&mapMonitor, "monitor", "",
		"Target monitor by name (see monitors)")

	cmd.Flags().IntVar(&mapMonitorIndex, "monitor-index", -1,
		"Target monitor by index")

	cmd.Flags().BoolVar(&mapNoRelated, "no-related", false,
		"Only touch the given device, not its sibling tools")

	cmd.Flags().StringSliceVar(&mapToolFilters, "tool-filter", nil,
		"Only include related tools whose name contains this string (repeatable)")
}
