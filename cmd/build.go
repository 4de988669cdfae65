package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"retro-sync/internal/builder"
	"retro-sync/internal/config"
	"retro-sync/internal/diagnostics"
	"retro-sync/internal/remotefs"
	"retro-sync/internal/util"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build <source-file>",
	Short: "Assemble a source file",
	Long:  `Run the configured assembler on a source file and report its diagnostics.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidateConfig()
		if err != nil {
			fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
			return
		}
		runBuild(cmd.Context(), cfg, args[0])
	},
}

// showBuildMenu is the main-menu entry: prompt for the source file, then
// build.
func showBuildMenu(ctx context.Context, cfg *config.Config) {
	source := promptInput("Source file to assemble")
	if source == "" {
		return
	}
	runBuild(ctx, cfg, source)
}

func runBuild(ctx context.Context, cfg *config.Config, sourcePath string) {
	b := builder.NewBuilder(cfg)

	util.Default.Printf("🔨 Assembling %s...\n", sourcePath)
	result, err := b.Build(ctx, sourcePath)
	if err != nil {
		util.Default.Printf("❌ %v\n", err)
		return
	}

	printDiagnostics(result.Diagnostics)

	switch result.Status {
	case builder.StatusTimedOut:
		util.Default.Printf("⏱️  Build timed out after %s\n", builder.BuildTimeout)
		return
	case builder.StatusFailed:
		if len(result.Diagnostics) == 0 {
			// nothing parseable: the raw stream is all we have
			util.Default.Printf("❌ Build failed:\n%s\n", result.Output)
		} else {
			util.Default.Printf("❌ Build failed with %d problem(s)\n", len(result.Diagnostics))
		}
		return
	}

	util.Default.Printf("✅ Build succeeded: %s\n", result.OutputFile)

	if promptSelect("Upload and run on device?", []string{"Yes", "No"}) != "Yes" {
		return
	}
	uploadAndRun(ctx, cfg, result.OutputFile)
}

// printDiagnostics renders the parsed batch with editor-style 1-based
// positions.
func printDiagnostics(records []diagnostics.Record) {
	for _, r := range records {
		icon := "❌"
		if r.Severity == diagnostics.SeverityWarning {
			icon = "⚠️ "
		}
		util.Default.Printf("%s %s:%d:%d %s: %s\n",
			icon, r.FilePath, r.Line+1, r.Column+1, r.Severity, r.Message)
	}
}

// uploadAndRun pushes the built program to the device and starts it.
func uploadAndRun(ctx context.Context, cfg *config.Config, outputFile string) {
	target := promptInput("Remote directory for the program")
	if target == "" {
		return
	}

	s, err := newSession(cfg)
	if err != nil {
		util.Default.Printf("❌ %v\n", err)
		return
	}
	defer s.close()

	remotePath := remotefs.JoinRemote("/", target, filepath.Base(outputFile))
	if res := s.client.Upload(ctx, outputFile, remotePath); !res.Success {
		util.Default.Printf("❌ upload of %s failed: %v (%s)\n", remotePath, res.Err, res.Output)
		return
	}
	util.Default.Printf("⬆️  Uploaded %s\n", remotePath)

	if err := s.control.Run(ctx, remotePath); err != nil {
		util.Default.Printf("❌ %v\n", err)
		return
	}
	util.Default.Printf("🚀 Running %s\n", remotePath)
}
