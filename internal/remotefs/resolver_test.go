package remotefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-sync/internal/remotecli"
)

type fakeRemote struct {
	listings  map[string][]remotecli.Entry
	calls     []string
	moveRes   func(src, dst string) remotecli.Result
	copyRes   func(src, dst string) remotecli.Result
	removeRes func(path string) remotecli.Result
}

func okResult() remotecli.Result { return remotecli.Result{Success: true} }

func (f *fakeRemote) List(ctx context.Context, path string) ([]remotecli.Entry, error) {
	f.calls = append(f.calls, "ls "+path)
	return f.listings[path], nil
}

func (f *fakeRemote) Move(ctx context.Context, src, dst string) remotecli.Result {
	f.calls = append(f.calls, "mv "+src+" "+dst)
	if f.moveRes != nil {
		return f.moveRes(src, dst)
	}
	return okResult()
}

func (f *fakeRemote) Copy(ctx context.Context, src, dst string) remotecli.Result {
	f.calls = append(f.calls, "cp "+src+" "+dst)
	if f.copyRes != nil {
		return f.copyRes(src, dst)
	}
	return okResult()
}

func (f *fakeRemote) Remove(ctx context.Context, path string) remotecli.Result {
	f.calls = append(f.calls, "rm "+path)
	if f.removeRes != nil {
		return f.removeRes(path)
	}
	return okResult()
}

func TestTransferRejectsRootTargetBeforeAnyRemoteCall(t *testing.T) {
	remote := &fakeRemote{}
	r := NewResolver(remote)

	sources := []Entry{{Name: "FOO.PRG", Path: "/games/FOO.PRG"}}
	_, err := r.Transfer(context.Background(), sources, "/", OpMove)

	assert.ErrorIs(t, err, ErrRootTarget)
	assert.Empty(t, remote.calls, "no remote invocation may happen for a root target")
}

func TestTransferSkipsSameParent(t *testing.T) {
	remote := &fakeRemote{}
	r := NewResolver(remote)

	sources := []Entry{{Name: "FOO.PRG", Path: "/games/FOO.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/games", OpMove)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	// only the target listing happened
	assert.Equal(t, []string{"ls /games"}, remote.calls)
}

func TestTransferRenamesOnConflict(t *testing.T) {
	remote := &fakeRemote{
		listings: map[string][]remotecli.Entry{
			"/target": {{Name: "FOO.PRG"}},
		},
	}
	r := NewResolver(remote)

	sources := []Entry{
		{Name: "FOO.PRG", Path: "/a/FOO.PRG"},
		{Name: "FOO.PRG", Path: "/b/FOO.PRG"},
	}
	outcomes, err := r.Transfer(context.Background(), sources, "/target", OpMove)

	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StatusMoved, outcomes[0].Status)
	assert.Equal(t, "/target/FOO_1.PRG", outcomes[0].Dest)
	assert.True(t, outcomes[0].Renamed)

	// the second source renames against the name the first one claimed
	assert.Equal(t, StatusMoved, outcomes[1].Status)
	assert.Equal(t, "/target/FOO_2.PRG", outcomes[1].Dest)
	assert.True(t, outcomes[1].Renamed)
}

func TestTransferPlainMove(t *testing.T) {
	remote := &fakeRemote{}
	r := NewResolver(remote)

	sources := []Entry{{Name: "BAR.PRG", Path: "/a/BAR.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/target", OpMove)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusMoved, outcomes[0].Status)
	assert.False(t, outcomes[0].Renamed)
	assert.Equal(t, []string{"ls /target", "mv /a/BAR.PRG /target/BAR.PRG"}, remote.calls)
}

func TestTransferCrossDeviceFallbackReportsMoved(t *testing.T) {
	remote := &fakeRemote{
		moveRes: func(src, dst string) remotecli.Result {
			return remotecli.Result{Success: false, Code: remotecli.CodeCrossDevice}
		},
	}
	r := NewResolver(remote)

	sources := []Entry{{Name: "BAR.PRG", Path: "/a/BAR.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/usb1", OpMove)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	// a fully successful copy+delete is still a move from the user's view
	assert.Equal(t, StatusMoved, outcomes[0].Status)
	assert.Equal(t, []string{
		"ls /usb1",
		"mv /a/BAR.PRG /usb1/BAR.PRG",
		"cp /a/BAR.PRG /usb1/BAR.PRG",
		"rm /a/BAR.PRG",
	}, remote.calls)
}

func TestTransferCrossDeviceCopyFailureLeavesSource(t *testing.T) {
	remote := &fakeRemote{
		moveRes: func(src, dst string) remotecli.Result {
			return remotecli.Result{Success: false, Code: remotecli.CodeCrossDevice}
		},
		copyRes: func(src, dst string) remotecli.Result {
			return remotecli.Result{Success: false, Output: "disk full"}
		},
	}
	r := NewResolver(remote)

	sources := []Entry{{Name: "BAR.PRG", Path: "/a/BAR.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/usb1", OpMove)

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Error(t, outcomes[0].Err)
	assert.NotContains(t, remote.calls, "rm /a/BAR.PRG")
}

func TestTransferCrossDeviceDeleteFailureIsPartial(t *testing.T) {
	remote := &fakeRemote{
		moveRes: func(src, dst string) remotecli.Result {
			return remotecli.Result{Success: false, Code: remotecli.CodeCrossDevice}
		},
		removeRes: func(path string) remotecli.Result {
			return remotecli.Result{Success: false, Output: "write protected"}
		},
	}
	r := NewResolver(remote)

	sources := []Entry{{Name: "BAR.PRG", Path: "/a/BAR.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/usb1", OpMove)

	require.NoError(t, err)
	assert.Equal(t, StatusPartial, outcomes[0].Status)
	// the partial report must mention both locations
	assert.Contains(t, outcomes[0].Err.Error(), "/usb1/BAR.PRG")
	assert.Contains(t, outcomes[0].Err.Error(), "/a/BAR.PRG")
}

func TestTransferNonCrossDeviceMoveFailureDoesNotFallBack(t *testing.T) {
	remote := &fakeRemote{
		moveRes: func(src, dst string) remotecli.Result {
			return remotecli.Result{Success: false, Code: 5, Output: "io error"}
		},
	}
	r := NewResolver(remote)

	sources := []Entry{{Name: "BAR.PRG", Path: "/a/BAR.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/usb1", OpMove)

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.NotContains(t, remote.calls, "cp /a/BAR.PRG /usb1/BAR.PRG")
}

func TestTransferBatchIsolatesFailures(t *testing.T) {
	remote := &fakeRemote{
		moveRes: func(src, dst string) remotecli.Result {
			if src == "/a/BAD.PRG" {
				return remotecli.Result{Success: false, Output: "io error"}
			}
			return okResult()
		},
	}
	r := NewResolver(remote)

	sources := []Entry{
		{Name: "BAD.PRG", Path: "/a/BAD.PRG"},
		{Name: "GOOD.PRG", Path: "/a/GOOD.PRG"},
	}
	outcomes, err := r.Transfer(context.Background(), sources, "/usb1", OpMove)

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Equal(t, StatusMoved, outcomes[1].Status)
}

func TestTransferCopyOp(t *testing.T) {
	remote := &fakeRemote{
		listings: map[string][]remotecli.Entry{
			"/target": {{Name: "FOO.PRG"}},
		},
	}
	r := NewResolver(remote)

	// copying into the source's own parent still goes through (with rename)
	sources := []Entry{{Name: "FOO.PRG", Path: "/target/FOO.PRG"}}
	outcomes, err := r.Transfer(context.Background(), sources, "/target", OpCopy)

	require.NoError(t, err)
	assert.Equal(t, StatusCopied, outcomes[0].Status)
	assert.Equal(t, "/target/FOO_1.PRG", outcomes[0].Dest)
}
