package touchcal

import (
	"fmt"

	"github.com/dkovalev/touchcal/desktop"
	"github.com/spf13/cobra"
)

// monitorsCmd represents the monitors command.
var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "Show the current monitor layout",
	Long: `Print every monitor with its position, size, rotation and scale, plus
the desktop bounding box and the layout hash used by profiles.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		layout, err := desktop.DetectLayout()
		if err != nil {
			return err
		}

		for _, m := range layout.Monitors {
			primary := " "
			if m.Primary {
				primary = "*"
			}

			fmt.Printf("%s %d: %-10s %dx%d%+d%+d rotation=%s scale=%.2fx%.2f\n",
				primary, m.Index, m.Name, m.Width, m.Height, m.X, m.Y,
				m.Rotation, m.ScaleX, m.ScaleY)
		}

		fmt.Printf("desktop: %dx%d at (%d, %d)\n",
			layout.Width, layout.Height, layout.OriginX, layout.OriginY)
		fmt.Printf("layout hash: %016x\n", layout.Hash())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
}
