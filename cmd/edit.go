package cmd

import (
	"fmt"

	"retro-sync/internal/config"
	"retro-sync/internal/util"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <remote-path>",
	Short: "Edit a remote file locally",
	Long: `Download a remote file into the cache, open it in the configured editor
and upload every save back to the device while the editor runs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidateConfig()
		if err != nil {
			fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
			return
		}

		ctx := cmd.Context()
		remotePath := args[0]

		s, err := newSession(cfg)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		defer s.close()

		if err := s.sync.StartWatching(); err != nil {
			fmt.Printf("❌ Failed to start save watcher: %v\n", err)
			return
		}

		// OpenFile blocks in the editor; intermediate writes flow through
		// the watcher while it runs.
		if err := s.sync.OpenFile(ctx, remotePath); err != nil {
			util.Default.Printf("❌ %v\n", err)
			return
		}

		// One final save pass in case the editor wrote after the last
		// watcher event was drained.
		if err := s.sync.HandleSave(ctx, s.sync.LocalPathFor(remotePath)); err != nil {
			util.Default.Printf("❌ %v\n", err)
		}
	},
}
