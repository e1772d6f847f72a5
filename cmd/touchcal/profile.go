package touchcal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dkovalev/touchcal/desktop"
	"github.com/dkovalev/touchcal/profile"
	"github.com/dkovalev/touchcal/xinput"
	"github.com/spf13/cobra"
)

// profileCmd groups the save/load/list subcommands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Persist and reapply monitor mappings",
	Long: `Profiles capture a device-to-monitor mapping together with the monitor
layout it was made for, so the same setup can be restored after reboots
or docking.`,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save the mapping for a device as a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if mapDeviceID < 0 {
			return fmt.Errorf("provide --device-id")
		}

		layout, err := desktop.DetectLayout()
		if err != nil {
			return err
		}

		monitor, err := layout.FindMonitor(mapMonitor, mapMonitorIndex)
		if err != nil {
			return err
		}

		name, err := xinput.DeviceName(mapDeviceID)
		if err != nil {
			return err
		}

		p := profile.ProfileData{
			DeviceID:       mapDeviceID,
			DeviceName:     name,
			Monitor:        monitor,
			IncludeRelated: !mapNoRelated,
			ToolFilters:    mapToolFilters,
			CTM:            desktop.ComputeCTM(layout, monitor),
		}
		p.FromLayout(layout)

		dir, err := resolveProfileDir()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating profile dir %s: %w", dir, err)
		}

		path := filepath.Join(dir, args[0]+".ini")
		if err := profile.Save(p, path); err != nil {
			return err
		}

		fmt.Printf("Profile saved to %s.\n", path)

		return nil
	},
}

var profileLoadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Reapply a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, err := resolveProfileDir()
		if err != nil {
			return err
		}

		p, err := profile.Load(filepath.Join(dir, args[0]+".ini"))
		if err != nil {
			return err
		}

		layout, err := desktop.DetectLayout()
		if err != nil {
			return err
		}

		if !p.Matches(layout) {
			slog.WarnContext(cmdCtx,
				"monitor layout changed since the profile was saved, mapping may be off",
				"profile", args[0])
		}

		id, err := currentDeviceID(p)
		if err != nil {
			return err
		}

		ids := []int{id}
		if p.IncludeRelated {
			ids, err = resolveTargetIDs(id, false, p.ToolFilters)
			if err != nil {
				return err
			}
		}

		if err := xinput.ApplyCTM(ids, p.CTM); err != nil {
			return err
		}

		fmt.Printf("Applied %s to %d device(s).\n", args[0], len(ids))

		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE: func(_ *cobra.Command, _ []string) error {
		dir, err := resolveProfileDir()
		if err != nil {
			return err
		}

		summaries, err := profile.List(dir)
		if errors.Is(err, os.ErrNotExist) || (err == nil && len(summaries) == 0) {
			fmt.Println("No profiles saved.")

			return nil
		}

		if err != nil {
			return err
		}

		for _, s := range summaries {
			fmt.Printf("%-16s %s -> %s\n", s.Name, s.DeviceName, s.MonitorName)
		}

		return nil
	},
}

// currentDeviceID prefers a name match, since numeric ids shift whenever
// devices are replugged.
func currentDeviceID(p profile.ProfileData) (int, error) {
	devices, err := xinput.EnumerateDevices()
	if err != nil {
		return 0, err
	}

	for _, d := range devices {
		if d.Name == p.DeviceName {
			return d.ID, nil
		}
	}

	for _, d := range devices {
		if d.ID == p.DeviceID {
			slog.WarnContext(cmdCtx, "device name not found, falling back to stored id",
				"name", p.DeviceName, "id", p.DeviceID)

			return d.ID, nil
		}
	}

	return 0, fmt.Errorf("device %q is not connected", p.DeviceName)
}

var profileDir string

func resolveProfileDir() (string, error) {
	if profileDir != "" {
		return profileDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".config", "touchcal", "profiles"), nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileLoadCmd)
	profileCmd.AddCommand(profileListCmd)

	profileCmd.PersistentFlags().StringVar(&profileDir, "profile-dir", "",
		"Directory holding profile files (default ~/.config/touchcal/profiles)")

	registerMappingFlags(profileSaveCmd)
}
