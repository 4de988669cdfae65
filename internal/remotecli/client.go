package remotecli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// CodeCrossDevice is the numeric error class the device CLI reports when a
// rename would cross partition/device boundaries. Moves that fail with this
// code are retried as copy+delete by the caller.
const CodeCrossDevice = 18

// Result is the outcome of one device CLI invocation.
type Result struct {
	Success bool
	Output  string
	Err     error
	// Code is the numeric error class parsed from the CLI output, 0 when
	// the CLI did not report one.
	Code int
}

// Entry is one filesystem object as reported by `fs ls`.
type Entry struct {
	Name  string `json:"Name"`
	Size  int64  `json:"Size"`
	IsDir bool   `json:"IsDir"`
	Type  string `json:"Type"`
}

// Client invokes the remote hardware CLI as a subprocess. One Client is
// constructed at startup from config and passed to everything that talks to
// the device.
type Client struct {
	BinPath string
	Host    string
	Port    string

	// execFn is swapped out in tests to avoid spawning processes.
	execFn func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewClient creates a device CLI client. host/port may be empty, in which
// case the global flags are omitted and the CLI uses its own discovery.
func NewClient(binPath, host, port string) *Client {
	return &Client{
		BinPath: binPath,
		Host:    host,
		Port:    port,
		execFn: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			return cmd.CombinedOutput()
		},
	}
}

// buildArgs prepends the global --host/--port flags when configured and
// appends --json for calls that expect structured output.
func (c *Client) buildArgs(wantJSON bool, args ...string) []string {
	var argv []string
	if c.Host != "" {
		argv = append(argv, "--host", c.Host)
	}
	if c.Port != "" {
		argv = append(argv, "--port", c.Port)
	}
	argv = append(argv, args...)
	if wantJSON {
		argv = append(argv, "--json")
	}
	return argv
}

var errCodeRe = regexp.MustCompile(`(?i)\berror\s+(\d+)\b`)

// Run executes one CLI call and captures its combined output. Failures never
// propagate as raw exec errors; they are folded into the Result.
func (c *Client) Run(ctx context.Context, wantJSON bool, args ...string) Result {
	argv := c.buildArgs(wantJSON, args...)
	out, err := c.execFn(ctx, c.BinPath, argv...)
	output := strings.TrimRight(string(out), "\n")

	res := Result{Output: output}
	if err != nil {
		res.Err = fmt.Errorf("%s %s: %v", c.BinPath, strings.Join(args, " "), err)
		if m := errCodeRe.FindStringSubmatch(output); m != nil {
			if code, cerr := strconv.Atoi(m[1]); cerr == nil {
				res.Code = code
			}
		}
		return res
	}
	res.Success = true
	return res
}

// IsCrossDevice reports whether a failed result carries the cross-device
// error class.
func IsCrossDevice(res Result) bool {
	return !res.Success && res.Code == CodeCrossDevice
}

// List runs `fs ls <path>` and decodes the JSON entry array. Empty output is
// an empty directory, not an error.
func (c *Client) List(ctx context.Context, path string) ([]Entry, error) {
	res := c.Run(ctx, true, "fs", "ls", path)
	if !res.Success {
		return nil, fmt.Errorf("fs ls %s failed: %v (%s)", path, res.Err, res.Output)
	}

	trimmed := strings.TrimSpace(res.Output)
	if trimmed == "" {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		return nil, fmt.Errorf("fs ls %s: invalid JSON output: %v", path, err)
	}
	return entries, nil
}

// Download runs `fs download <remotePath> <localPath>`.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) Result {
	return c.Run(ctx, false, "fs", "download", remotePath, localPath)
}

// Upload runs `fs upload <localPath> <remotePath>`.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) Result {
	return c.Run(ctx, false, "fs", "upload", localPath, remotePath)
}

// Move runs `fs mv <src> <dst>`.
func (c *Client) Move(ctx context.Context, src, dst string) Result {
	return c.Run(ctx, false, "fs", "mv", src, dst)
}

// Copy runs `fs cp <src> <dst>`.
func (c *Client) Copy(ctx context.Context, src, dst string) Result {
	return c.Run(ctx, false, "fs", "cp", src, dst)
}

// Remove runs `fs rm <path>`.
func (c *Client) Remove(ctx context.Context, path string) Result {
	return c.Run(ctx, false, "fs", "rm", path)
}

// Mkdir runs `fs mkdir <path>`.
func (c *Client) Mkdir(ctx context.Context, path string) Result {
	return c.Run(ctx, false, "fs", "mkdir", path)
}

// RunPrg triggers execution of a program file on the device.
func (c *Client) RunPrg(ctx context.Context, path string) Result {
	return c.Run(ctx, false, "runners", "run-prg", path)
}

// RunCrt triggers execution of a cartridge image on the device.
func (c *Client) RunCrt(ctx context.Context, path string) Result {
	return c.Run(ctx, false, "runners", "run-crt", path)
}

// Mount attaches a disk image to a drive slot.
func (c *Client) Mount(ctx context.Context, slot, path, imageType, mode string) Result {
	return c.Run(ctx, false, "drives", "mount", slot, path, "--type", imageType, "--mode", mode)
}

// Unmount detaches whatever is mounted on a drive slot.
func (c *Client) Unmount(ctx context.Context, slot string) Result {
	return c.Run(ctx, false, "drives", "unmount", slot)
}

// Machine issues a machine control action (reset, reboot, pause, resume,
// poweroff).
func (c *Client) Machine(ctx context.Context, action string) Result {
	return c.Run(ctx, false, "machine", action)
}

// CreateImage creates a new disk image of the given type on the device.
// tracks is only passed when > 0 (extensible formats).
func (c *Client) CreateImage(ctx context.Context, imageType, path, label string, tracks int) Result {
	args := []string{"files", "create-" + imageType, path, "--name", label}
	if tracks > 0 {
		args = append(args, "--tracks", strconv.Itoa(tracks))
	}
	return c.Run(ctx, false, args...)
}
