package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-sync/internal/remotecli"
)

type fakeDevice struct {
	calls []string
}

func (f *fakeDevice) record(call string) remotecli.Result {
	f.calls = append(f.calls, call)
	return remotecli.Result{Success: true}
}

func (f *fakeDevice) Machine(ctx context.Context, action string) remotecli.Result {
	return f.record("machine " + action)
}

func (f *fakeDevice) Mount(ctx context.Context, slot, path, imageType, mode string) remotecli.Result {
	return f.record("mount " + slot + " " + path + " " + imageType + " " + mode)
}

func (f *fakeDevice) Unmount(ctx context.Context, slot string) remotecli.Result {
	return f.record("unmount " + slot)
}

func (f *fakeDevice) CreateImage(ctx context.Context, imageType, path, label string, tracks int) remotecli.Result {
	return f.record("create " + imageType + " " + path)
}

func (f *fakeDevice) RunPrg(ctx context.Context, path string) remotecli.Result {
	return f.record("run-prg " + path)
}

func (f *fakeDevice) RunCrt(ctx context.Context, path string) remotecli.Result {
	return f.record("run-crt " + path)
}

func TestControlRejectsUnknownAction(t *testing.T) {
	remote := &fakeDevice{}
	c := NewController(remote)

	err := c.Control(context.Background(), "explode")

	assert.Error(t, err)
	assert.Empty(t, remote.calls)
}

func TestControlIssuesAction(t *testing.T) {
	remote := &fakeDevice{}
	c := NewController(remote)

	require.NoError(t, c.Control(context.Background(), "reset"))
	assert.Equal(t, []string{"machine reset"}, remote.calls)
}

func TestMountCanonicalizesGCRVariants(t *testing.T) {
	remote := &fakeDevice{}
	c := NewController(remote)

	require.NoError(t, c.Mount(context.Background(), "a", "/disks/demo.g64", "readonly"))
	assert.Equal(t, []string{"mount a /disks/demo.g64 d64 readonly"}, remote.calls)
}

func TestMountValidatesBeforeRemoteCall(t *testing.T) {
	testCases := []struct {
		slot, path, mode string
		desc             string
	}{
		{"c", "/disks/demo.d64", "readonly", "unknown slot"},
		{"a", "/disks/demo.d64", "turbo", "unknown mode"},
		{"a", "/games/demo.prg", "readonly", "not a disk image"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			remote := &fakeDevice{}
			c := NewController(remote)
			assert.Error(t, c.Mount(context.Background(), tc.slot, tc.path, tc.mode))
			assert.Empty(t, remote.calls)
		})
	}
}

func TestValidateImageSpec(t *testing.T) {
	testCases := []struct {
		imageType string
		label     string
		tracks    int
		wantErr   bool
		desc      string
	}{
		{"d64", "MYDISK", 0, false, "d64 default tracks"},
		{"d64", "MYDISK", 35, false, "d64 35 tracks"},
		{"d64", "MYDISK", 40, false, "d64 extended tracks"},
		{"d64", "MYDISK", 42, true, "d64 invalid tracks"},
		{"d81", "MYDISK", 0, false, "d81 fixed tracks"},
		{"d81", "MYDISK", 40, true, "d81 rejects tracks"},
		{"d64", "", 0, true, "empty label"},
		{"d64", "THISLABELISWAYTOOLONG", 0, true, "label over 16 chars"},
		{"xyz", "MYDISK", 0, true, "unknown type"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := ValidateImageSpec(tc.imageType, tc.label, tc.tracks)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateImageValidatesClientSide(t *testing.T) {
	remote := &fakeDevice{}
	c := NewController(remote)

	err := c.CreateImage(context.Background(), "d64", "/disks/new.d64", "WAYTOOLONGDISKLABEL", 0)

	assert.Error(t, err)
	assert.Empty(t, remote.calls, "invalid specs never reach the device")
}

func TestRunPicksRunnerByExtension(t *testing.T) {
	remote := &fakeDevice{}
	c := NewController(remote)

	require.NoError(t, c.Run(context.Background(), "/games/demo.prg"))
	require.NoError(t, c.Run(context.Background(), "/carts/game.CRT"))

	assert.Equal(t, []string{"run-prg /games/demo.prg", "run-crt /carts/game.CRT"}, remote.calls)
}
