package touchcal

import (
	"fmt"

	"github.com/dkovalev/touchcal/db"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show gesture counts from the event log",
	Long:  `Aggregate the events recorded by track into per-gesture counts.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		storage, err := db.ConnectDB(statsStorage)
		if err != nil {
			return fmt.Errorf("could not open %s as sqlite file: %w", statsStorage, err)
		}

		defer storage.Close()

		counts, err := storage.GatherCounts()
		if err != nil {
			return err
		}

		if len(counts) == 0 {
			fmt.Println("No events recorded yet.")

			return nil
		}

		total := 0
		for _, c := range counts {
			fmt.Printf("%-12s %d\n", c.Type, c.Count)
			total += c.Count
		}

		fmt.Printf("%-12s %d\n", "total", total)

		return nil
	},
}

var statsStorage string

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(
		&statsStorage,
		"out",
		"o",
		"./touches.sqlite",
		"Event log produced by track")
}
