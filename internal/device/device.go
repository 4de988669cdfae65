package device

import (
	"context"
	"fmt"
	"strings"

	"retro-sync/internal/remotecli"
	"retro-sync/internal/remotefs"
)

// MachineActions is the fixed set of machine-control actions the device
// accepts. The Machine section of the tree is built from this list, not
// fetched from the remote.
var MachineActions = []string{"reset", "reboot", "pause", "resume", "poweroff"}

// MountModes are the access modes a drive slot supports.
var MountModes = []string{"readwrite", "readonly", "unlinked"}

// DriveSlots are the drive slots available for mounting.
var DriveSlots = []string{"a", "b"}

// MaxLabelLength is the longest disk label the device accepts. Enforced
// client-side so the remote tool's own validation failure never surfaces as
// an opaque error.
const MaxLabelLength = 16

// creatableTypes maps image types to whether they take a --tracks flag.
var creatableTypes = map[string]bool{
	"d64": true,
	"d71": false,
	"d81": false,
	"dnp": false,
}

// Remote is the slice of the device CLI the controller needs.
type Remote interface {
	Machine(ctx context.Context, action string) remotecli.Result
	Mount(ctx context.Context, slot, path, imageType, mode string) remotecli.Result
	Unmount(ctx context.Context, slot string) remotecli.Result
	CreateImage(ctx context.Context, imageType, path, label string, tracks int) remotecli.Result
	RunPrg(ctx context.Context, path string) remotecli.Result
	RunCrt(ctx context.Context, path string) remotecli.Result
}

// Controller wraps machine control, drive mounting and image creation with
// client-side validation.
type Controller struct {
	remote Remote
}

func NewController(remote Remote) *Controller {
	return &Controller{remote: remote}
}

// Control issues one machine action.
func (c *Controller) Control(ctx context.Context, action string) error {
	if !contains(MachineActions, action) {
		return fmt.Errorf("unknown machine action %q (expected one of %v)", action, MachineActions)
	}
	res := c.remote.Machine(ctx, action)
	if !res.Success {
		return fmt.Errorf("machine %s failed: %v (%s)", action, res.Err, res.Output)
	}
	return nil
}

// Mount attaches a disk image to a drive slot. The image type is derived
// from the file extension with the GCR canonicalization applied.
func (c *Controller) Mount(ctx context.Context, slot, imagePath, mode string) error {
	if !contains(DriveSlots, slot) {
		return fmt.Errorf("unknown drive slot %q (expected one of %v)", slot, DriveSlots)
	}
	if !contains(MountModes, mode) {
		return fmt.Errorf("unknown mount mode %q (expected one of %v)", mode, MountModes)
	}
	imageType, ok := remotefs.MountType(imagePath)
	if !ok {
		return fmt.Errorf("%s is not a mountable disk image", imagePath)
	}
	res := c.remote.Mount(ctx, slot, imagePath, imageType, mode)
	if !res.Success {
		return fmt.Errorf("mount %s on drive %s failed: %v (%s)", imagePath, slot, res.Err, res.Output)
	}
	return nil
}

// Unmount detaches whatever is mounted on the slot.
func (c *Controller) Unmount(ctx context.Context, slot string) error {
	if !contains(DriveSlots, slot) {
		return fmt.Errorf("unknown drive slot %q (expected one of %v)", slot, DriveSlots)
	}
	res := c.remote.Unmount(ctx, slot)
	if !res.Success {
		return fmt.Errorf("unmount drive %s failed: %v (%s)", slot, res.Err, res.Output)
	}
	return nil
}

// ValidateImageSpec checks type-specific creation parameters before any
// remote call is issued.
func ValidateImageSpec(imageType, label string, tracks int) error {
	takesTracks, ok := creatableTypes[imageType]
	if !ok {
		return fmt.Errorf("unknown image type %q", imageType)
	}
	if label == "" {
		return fmt.Errorf("disk label cannot be empty")
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("disk label %q exceeds %d characters", label, MaxLabelLength)
	}
	if takesTracks {
		if tracks != 0 && tracks != 35 && tracks != 40 {
			return fmt.Errorf("%s images support 35 or 40 tracks, got %d", imageType, tracks)
		}
	} else if tracks != 0 {
		return fmt.Errorf("%s images have a fixed track count", imageType)
	}
	return nil
}

// CreateImage validates and creates a new disk image on the device.
func (c *Controller) CreateImage(ctx context.Context, imageType, imagePath, label string, tracks int) error {
	if err := ValidateImageSpec(imageType, label, tracks); err != nil {
		return err
	}
	res := c.remote.CreateImage(ctx, imageType, imagePath, label, tracks)
	if !res.Success {
		return fmt.Errorf("create-%s %s failed: %v (%s)", imageType, imagePath, res.Err, res.Output)
	}
	return nil
}

// Run fires program execution on the device, choosing the runner from the
// file extension (.crt uses the cartridge runner, everything else run-prg).
func (c *Controller) Run(ctx context.Context, remotePath string) error {
	var res remotecli.Result
	if strings.HasSuffix(strings.ToLower(remotePath), ".crt") {
		res = c.remote.RunCrt(ctx, remotePath)
	} else {
		res = c.remote.RunPrg(ctx, remotePath)
	}
	if !res.Success {
		return fmt.Errorf("run %s failed: %v (%s)", remotePath, res.Err, res.Output)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
