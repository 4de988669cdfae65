package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"retro-sync/internal/config"
	"retro-sync/internal/diagnostics"
)

// BuildTimeout bounds one assembler invocation. Expiry is reported as a
// distinct timeout outcome, not a generic failure.
const BuildTimeout = 60 * time.Second

// Status is the terminal state of one build.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// BuildResult carries the raw output and the parsed diagnostic batch of one
// build. A failed build with zero diagnostics is a valid, reportable state.
type BuildResult struct {
	Status      Status
	Output      string
	OutputFile  string
	Diagnostics []diagnostics.Record
}

// Builder invokes the configured assembler.
type Builder struct {
	assemblerPath string
	outputDir     string

	// execFn is swapped out in tests.
	execFn func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		assemblerPath: cfg.Build.AssemblerPath,
		outputDir:     cfg.Build.OutputDir,
		execFn: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			return cmd.CombinedOutput()
		},
	}
}

// Build assembles sourcePath into the output directory. The combined output
// stream is always handed to the diagnostic parser, whatever the exit state.
func (b *Builder) Build(ctx context.Context, sourcePath string) (BuildResult, error) {
	if b.assemblerPath == "" {
		return BuildResult{}, errors.New("build.assembler_path is not configured")
	}

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return BuildResult{}, fmt.Errorf("failed to create output directory %s: %v", b.outputDir, err)
	}

	base := filepath.Base(sourcePath)
	outputFile := filepath.Join(b.outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".prg")

	buildCtx, cancel := context.WithTimeout(ctx, BuildTimeout)
	defer cancel()

	out, err := b.execFn(buildCtx, b.assemblerPath, sourcePath, "-o", outputFile)
	rawOutput := string(out)

	result := BuildResult{
		Output:      rawOutput,
		OutputFile:  outputFile,
		Diagnostics: diagnostics.Parse(sourcePath, rawOutput),
	}

	switch {
	case buildCtx.Err() == context.DeadlineExceeded:
		result.Status = StatusTimedOut
	case err != nil:
		result.Status = StatusFailed
	default:
		result.Status = StatusSuccess
	}

	return result, nil
}
