package remotefs

import (
	"context"
	"errors"
	"fmt"
	"path"

	"retro-sync/internal/remotecli"
)

// Op selects the transfer behavior.
type Op int

const (
	OpMove Op = iota
	OpCopy
)

// Status is the per-entry result of a transfer batch.
type Status string

const (
	StatusMoved   Status = "moved"
	StatusCopied  Status = "copied"
	StatusSkipped Status = "skipped"
	// StatusPartial means the cross-device copy succeeded but the source
	// could not be deleted: the file now exists in both locations.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to one source entry.
type Outcome struct {
	Source  string
	Dest    string
	Status  Status
	Renamed bool
	Err     error
}

// ErrRootTarget is returned before any remote call when the transfer target
// is the filesystem root, which cannot hold files on this device.
var ErrRootTarget = errors.New("the filesystem root cannot hold files; choose a subdirectory")

// Remote is the slice of the device CLI the resolver needs.
type Remote interface {
	List(ctx context.Context, path string) ([]remotecli.Entry, error)
	Move(ctx context.Context, src, dst string) remotecli.Result
	Copy(ctx context.Context, src, dst string) remotecli.Result
	Remove(ctx context.Context, path string) remotecli.Result
}

// Resolver performs structural mutations against the remote tree: batched
// move/copy with automatic rename-on-conflict and a copy-then-delete fallback
// when the device rejects a cross-device rename.
type Resolver struct {
	remote Remote
}

func NewResolver(remote Remote) *Resolver {
	return &Resolver{remote: remote}
}

// Transfer moves or copies sources into targetDir. Entries are processed
// sequentially; one entry's failure never aborts the rest. The caller is
// expected to refresh its view unconditionally afterwards.
func (r *Resolver) Transfer(ctx context.Context, sources []Entry, targetDir string, op Op) ([]Outcome, error) {
	if targetDir == "/" || targetDir == "" {
		return nil, ErrRootTarget
	}

	listed, err := r.remote.List(ctx, targetDir)
	if err != nil {
		return nil, fmt.Errorf("cannot list target directory %s: %v", targetDir, err)
	}
	taken := make(map[string]bool, len(listed))
	for _, e := range listed {
		taken[e.Name] = true
	}

	outcomes := make([]Outcome, 0, len(sources))
	for _, src := range sources {
		outcome := r.transferOne(ctx, src, targetDir, op, taken)
		if outcome.Status != StatusSkipped && outcome.Status != StatusFailed {
			// the batch claims the destination name so a later entry
			// with the same filename renames against it
			taken[nameOf(outcome.Dest)] = true
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (r *Resolver) transferOne(ctx context.Context, src Entry, targetDir string, op Op, taken map[string]bool) Outcome {
	if op == OpMove && ParentDir(src.Path) == targetDir {
		return Outcome{Source: src.Path, Status: StatusSkipped}
	}

	name := UniqueName(src.Name, taken)
	dst := JoinRemote(targetDir, name)
	renamed := name != src.Name
	outcome := Outcome{Source: src.Path, Dest: dst, Renamed: renamed}

	if op == OpCopy {
		if res := r.remote.Copy(ctx, src.Path, dst); !res.Success {
			outcome.Status = StatusFailed
			outcome.Err = fmt.Errorf("copy to %s failed: %v (%s)", dst, res.Err, res.Output)
			return outcome
		}
		outcome.Status = StatusCopied
		return outcome
	}

	res := r.remote.Move(ctx, src.Path, dst)
	if res.Success {
		outcome.Status = StatusMoved
		return outcome
	}

	if !remotecli.IsCrossDevice(res) {
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("move to %s failed: %v (%s)", dst, res.Err, res.Output)
		return outcome
	}

	// Cross-device rename rejected: retry as copy, then delete the source.
	if res := r.remote.Copy(ctx, src.Path, dst); !res.Success {
		// source untouched
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("cross-device copy to %s failed: %v (%s)", dst, res.Err, res.Output)
		return outcome
	}
	if res := r.remote.Remove(ctx, src.Path); !res.Success {
		// the copy exists; losing track of either file silently is worse
		// than reporting the duplication
		outcome.Status = StatusPartial
		outcome.Err = fmt.Errorf("copied to %s but could not delete %s: %v (%s)", dst, src.Path, res.Err, res.Output)
		return outcome
	}
	outcome.Status = StatusMoved
	return outcome
}

func nameOf(remotePath string) string {
	return path.Base(remotePath)
}
