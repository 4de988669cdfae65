package cmd

import (
	"context"
	"fmt"
	"strings"

	"retro-sync/internal/config"
	"retro-sync/internal/device"
	"retro-sync/internal/remotecli"
	"retro-sync/internal/util"

	"github.com/spf13/cobra"
)

var machineCmd = &cobra.Command{
	Use:   "machine <action>",
	Short: "Issue a machine control action",
	Long:  fmt.Sprintf(`Send one machine action to the device: %s.`, strings.Join(device.MachineActions, ", ")),
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withController(func(ctx context.Context, c *device.Controller) {
			if err := c.Control(ctx, args[0]); err != nil {
				fmt.Printf("❌ %v\n", err)
				return
			}
			fmt.Printf("✅ machine %s done\n", args[0])
		}, cmd)
	},
}

var mountMode string

var mountCmd = &cobra.Command{
	Use:   "mount <slot> <image-path>",
	Short: "Mount a disk image on a drive slot",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withController(func(ctx context.Context, c *device.Controller) {
			if err := c.Mount(ctx, args[0], args[1], mountMode); err != nil {
				fmt.Printf("❌ %v\n", err)
				return
			}
			fmt.Printf("💾 Mounted %s on drive %s (%s)\n", args[1], args[0], mountMode)
		}, cmd)
	},
}

var unmountCmd = &cobra.Command{
	Use:   "unmount <slot>",
	Short: "Unmount whatever is on a drive slot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withController(func(ctx context.Context, c *device.Controller) {
			if err := c.Unmount(ctx, args[0]); err != nil {
				fmt.Printf("❌ %v\n", err)
				return
			}
			fmt.Printf("💾 Unmounted drive %s\n", args[0])
		}, cmd)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <remote-path>",
	Short: "Run a program or cartridge on the device",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withController(func(ctx context.Context, c *device.Controller) {
			if err := c.Run(ctx, args[0]); err != nil {
				fmt.Printf("❌ %v\n", err)
				return
			}
			fmt.Printf("🚀 Running %s\n", args[0])
		}, cmd)
	},
}

func init() {
	mountCmd.Flags().StringVar(&mountMode, "mode", "readwrite",
		fmt.Sprintf("mount mode: %s", strings.Join(device.MountModes, ", ")))
}

// withController loads config, builds a device controller and hands it to fn.
// These commands never need the sync machinery, so no session is built.
func withController(fn func(ctx context.Context, c *device.Controller), cmd *cobra.Command) {
	cfg, err := config.LoadAndValidateConfig()
	if err != nil {
		fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
		return
	}
	client := remotecli.NewClient(cfg.Device.CLIPath, cfg.Device.Host, cfg.Device.Port)
	fn(cmd.Context(), device.NewController(client))
}

// showMachineMenu is the main-menu entry for machine control.
func showMachineMenu(ctx context.Context, cfg *config.Config) {
	action := promptSelect("Machine action", append(append([]string{}, device.MachineActions...), "Back"))
	if action == "" || action == "Back" {
		return
	}
	client := remotecli.NewClient(cfg.Device.CLIPath, cfg.Device.Host, cfg.Device.Port)
	if err := device.NewController(client).Control(ctx, action); err != nil {
		util.Default.Printf("❌ %v\n", err)
		return
	}
	util.Default.Printf("✅ machine %s done\n", action)
}

// showDrivesMenu is the main-menu entry for mounting and unmounting.
func showDrivesMenu(ctx context.Context, cfg *config.Config) {
	client := remotecli.NewClient(cfg.Device.CLIPath, cfg.Device.Host, cfg.Device.Port)
	c := device.NewController(client)

	choice := promptSelect("Drives", []string{"Mount an image...", "Unmount a slot...", "Back"})
	switch choice {
	case "Mount an image...":
		slot := promptSelect("Drive slot", device.DriveSlots)
		if slot == "" {
			return
		}
		image := promptInput("Remote image path")
		if image == "" {
			return
		}
		mode := promptSelect("Mount mode", device.MountModes)
		if mode == "" {
			return
		}
		if err := c.Mount(ctx, slot, image, mode); err != nil {
			util.Default.Printf("❌ %v\n", err)
			return
		}
		util.Default.Printf("💾 Mounted %s on drive %s (%s)\n", image, slot, mode)
	case "Unmount a slot...":
		slot := promptSelect("Drive slot", device.DriveSlots)
		if slot == "" {
			return
		}
		if err := c.Unmount(ctx, slot); err != nil {
			util.Default.Printf("❌ %v\n", err)
			return
		}
		util.Default.Printf("💾 Unmounted drive %s\n", slot)
	}
}
