package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"retro-sync/internal/cache"
	"retro-sync/internal/config"
	"retro-sync/internal/device"
	"retro-sync/internal/filesync"
	"retro-sync/internal/remotecli"
	"retro-sync/internal/remotefs"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "retro-sync",
	Short: "Remote retro hardware companion",
	Long: `A CLI tool for working against a retro hardware device: browse its
filesystem, edit remote files with save-triggered upload, assemble sources
and run the result, control the machine and its drives.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cwd, _ := os.Getwd()
		fmt.Printf("You are in: %s\n", cwd)

		if !config.ConfigExists() {
			fmt.Println("Config file not found")
			fmt.Println("USAGE:")
			fmt.Println("Make sure you have the config file by running.")
			fmt.Println("retro-sync init")
			return
		}

		cfg, err := config.LoadAndValidateConfig()
		if err != nil {
			fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
			fmt.Println("💡 Please fix the configuration issues or run 'retro-sync init' to recreate the config")
			return
		}
		fmt.Println("✅ Configuration is valid!")

		// Main menu loop - return to menu after each mode ends
		for {
			select {
			case <-ctx.Done():
				fmt.Println("⏹ Cancelled")
				return
			default:
			}
			if continueMenu, newCfg := showMainMenu(ctx, cfg); !continueMenu {
				// User chose to exit
				break
			} else if newCfg != nil {
				// Config was reloaded, update it
				cfg = newCfg
			}
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize config file",
	Long:  `Generate a default retro-sync.yaml config file in the current directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, _ := os.Getwd()
		fmt.Printf("You are in: %s\n", cwd)

		if config.ConfigExists() {
			fmt.Println("Config file already exists.")
			return
		}

		if err := config.WriteDefaultConfig(); err != nil {
			fmt.Printf("Error writing %s: %v\n", config.ConfigFileName, err)
			return
		}
		fmt.Printf("✅ Created %s\n", config.GetConfigPath())
		fmt.Println("💡 Edit device.host and device.port to point at your device, then run 'retro-sync'")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(machineCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(runCmd)
}

// session bundles the collaborators every interactive mode needs. One session
// is built per mode entry and disposed when the mode ends.
type session struct {
	cfg      *config.Config
	client   *remotecli.Client
	control  *device.Controller
	tree     *remotefs.Tree
	resolver *remotefs.Resolver
	meta     *cache.SyncCache
	sync     *filesync.Manager
}

func newSession(cfg *config.Config) (*session, error) {
	client := remotecli.NewClient(cfg.Device.CLIPath, cfg.Device.Host, cfg.Device.Port)

	if err := os.MkdirAll(cfg.Sync.CacheRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root %s: %v", cfg.Sync.CacheRoot, err)
	}
	meta, err := cache.NewSyncCache(filepath.Join(cfg.Sync.CacheRoot, "sync.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open sync metadata: %v", err)
	}

	mgr, err := filesync.NewManager(cfg, client, meta)
	if err != nil {
		meta.Close()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		client:   client,
		control:  device.NewController(client),
		tree:     remotefs.NewTree(client, device.MachineActions),
		resolver: remotefs.NewResolver(client),
		meta:     meta,
		sync:     mgr,
	}, nil
}

func (s *session) close() {
	s.sync.Dispose()
	s.meta.Close()
}

func showMainMenu(ctx context.Context, loadedCfg *config.Config) (bool, *config.Config) {
	cfg := loadedCfg

	items := []string{
		"browse :: Remote tree browser",
		"build :: Assemble a source file",
		"machine :: Machine control",
		"drives :: Mount / unmount disk images",
		"Restart",
		"Exit",
	}

	prompt := promptui.Select{
		Label: "Select an option",
		Items: items,
	}

	_, result, err := prompt.Run()
	if err != nil {
		fmt.Printf("Prompt failed %v\n", err)
		return false, nil
	}

	switch result {
	case "browse :: Remote tree browser":
		if err := runBrowser(ctx, cfg); err != nil {
			fmt.Printf("❌ Browser error: %v\n", err)
		}
		return true, nil
	case "build :: Assemble a source file":
		showBuildMenu(ctx, cfg)
		return true, nil
	case "machine :: Machine control":
		showMachineMenu(ctx, cfg)
		return true, nil
	case "drives :: Mount / unmount disk images":
		showDrivesMenu(ctx, cfg)
		return true, nil
	case "Restart":
		fmt.Println("🔄 Reloading configuration...")
		newCfg, err := config.LoadAndValidateConfig()
		if err != nil {
			fmt.Printf("❌ Failed to reload configuration: %v\n", err)
			fmt.Println("💡 Continuing with current configuration")
			return true, nil
		}
		fmt.Println("✅ Configuration reloaded successfully!")
		return true, newCfg
	case "Exit":
		fmt.Println("Exiting...")
		return false, nil
	}

	return true, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// ExecuteContext allows running the root command with a supplied context for cancellation.
func ExecuteContext(ctx context.Context) error {
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		return err
	}
	return nil
}
