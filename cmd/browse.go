package cmd

import (
	"context"
	"fmt"
	"path"
	"strings"

	"retro-sync/internal/config"
	"retro-sync/internal/device"
	"retro-sync/internal/events"
	"retro-sync/internal/history"
	"retro-sync/internal/remotefs"
	"retro-sync/internal/tui"
	"retro-sync/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the remote device tree",
	Long:  `Interactive browser over the device: machine control plus the remote filesystem with open/run/move/copy/delete.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidateConfig()
		if err != nil {
			fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
			return
		}
		if err := runBrowser(cmd.Context(), cfg); err != nil {
			fmt.Printf("❌ Browser error: %v\n", err)
		}
	},
}

const dirActionsLabel = "⚙  directory actions"

// runBrowser is the interactive tree loop. The current node's children are
// re-fetched on every pass, so the view is always fresh after a mutation.
func runBrowser(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.sync.StartWatching(); err != nil {
		return fmt.Errorf("failed to start save watcher: %v", err)
	}

	// stack holds the path from the root; the last element is the current
	// node, nil meaning the invisible root with its two sections.
	stack := []*remotefs.Node{nil}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cur := stack[len(stack)-1]
		children, err := s.tree.GetChildren(ctx, cur)
		if err != nil {
			util.Default.Printf("❌ Listing failed: %v\n", err)
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				continue
			}
			return err
		}

		byLabel := make(map[string]*remotefs.Node, len(children))
		items := make([]string, 0, len(children)+1)
		for i := range children {
			c := &children[i]
			items = append(items, c.Label)
			byLabel[c.Label] = c
		}
		if cur != nil && (cur.Kind == remotefs.KindDirectory || cur.Kind == remotefs.KindDiskImage ||
			(cur.Kind == remotefs.KindSection && cur.Label == remotefs.SectionFileSystem)) {
			items = append(items, dirActionsLabel)
		}

		title := "Device"
		if cur != nil {
			title = cur.Label
			if cur.Path != "" && cur.Kind != remotefs.KindSection {
				title = cur.Path
			}
		}

		choice, err := tui.ShowMenuWithPrints(items, title)
		if err != nil {
			return fmt.Errorf("menu failed: %v", err)
		}

		if choice == tui.Cancelled || choice == "" {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				continue
			}
			return nil
		}

		if choice == dirActionsLabel {
			if quit := showDirActions(ctx, s, cur, &stack); quit {
				return nil
			}
			continue
		}

		node, ok := byLabel[choice]
		if !ok {
			continue
		}

		switch node.Kind {
		case remotefs.KindPlaceholder:
			// nothing behind it
		case remotefs.KindParent:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case remotefs.KindSection, remotefs.KindDirectory:
			stack = append(stack, node)
			if node.Kind == remotefs.KindDirectory {
				history.AddPath(node.Path)
			}
		case remotefs.KindMachineAction:
			if err := s.control.Control(ctx, node.Path); err != nil {
				util.Default.Printf("❌ %v\n", err)
			} else {
				util.Default.Printf("✅ machine %s done\n", node.Path)
			}
		case remotefs.KindDiskImage:
			showImageMenu(ctx, s, node, &stack)
		case remotefs.KindFile:
			showFileMenu(ctx, s, node)
		}
	}
}

// showFileMenu handles one selected plain file.
func showFileMenu(ctx context.Context, s *session, node *remotefs.Node) {
	items := []string{"Open", "Run on device", "Move to...", "Copy to...", "Delete", "Back"}
	choice := promptSelect(fmt.Sprintf("Selected: %s", node.Path), items)

	switch choice {
	case "Open":
		if err := s.sync.OpenFile(ctx, node.Path); err != nil {
			util.Default.Printf("❌ %v\n", err)
		}
	case "Run on device":
		if err := s.control.Run(ctx, node.Path); err != nil {
			util.Default.Printf("❌ %v\n", err)
		} else {
			util.Default.Printf("🚀 Running %s\n", node.Path)
		}
	case "Move to...":
		transferEntries(ctx, s, []remotefs.Entry{*node.Entry}, remotefs.OpMove)
	case "Copy to...":
		transferEntries(ctx, s, []remotefs.Entry{*node.Entry}, remotefs.OpCopy)
	case "Delete":
		deleteRemote(ctx, s, node.Path)
	}
}

// showImageMenu handles one selected disk image, which can be browsed into
// like a directory or mounted on a drive slot.
func showImageMenu(ctx context.Context, s *session, node *remotefs.Node, stack *[]*remotefs.Node) {
	items := []string{"Browse contents", "Mount on drive...", "Move to...", "Copy to...", "Delete", "Back"}
	choice := promptSelect(fmt.Sprintf("Selected: %s", node.Path), items)

	switch choice {
	case "Browse contents":
		*stack = append(*stack, node)
	case "Mount on drive...":
		slot := promptSelect("Drive slot", device.DriveSlots)
		if slot == "" {
			return
		}
		mode := promptSelect("Mount mode", device.MountModes)
		if mode == "" {
			return
		}
		if err := s.control.Mount(ctx, slot, node.Path, mode); err != nil {
			util.Default.Printf("❌ %v\n", err)
		} else {
			util.Default.Printf("💾 Mounted %s on drive %s (%s)\n", node.Path, slot, mode)
		}
	case "Move to...":
		transferEntries(ctx, s, []remotefs.Entry{*node.Entry}, remotefs.OpMove)
	case "Copy to...":
		transferEntries(ctx, s, []remotefs.Entry{*node.Entry}, remotefs.OpCopy)
	case "Delete":
		deleteRemote(ctx, s, node.Path)
	}
}

// showDirActions offers mutations on the current directory itself. Returns
// true when the browser should exit.
func showDirActions(ctx context.Context, s *session, cur *remotefs.Node, stack *[]*remotefs.Node) bool {
	isRoot := cur.Kind == remotefs.KindSection
	items := []string{"New directory", "New disk image", "Jump to recent directory..."}
	if !isRoot {
		items = append(items, "Move this directory to...", "Copy this directory to...", "Delete this directory")
	}
	items = append(items, "Back", "Exit browser")

	choice := promptSelect(fmt.Sprintf("Actions in %s", cur.Path), items)

	switch choice {
	case "New directory":
		name := promptInput("New directory name")
		if name == "" {
			return false
		}
		dst := remotefs.JoinRemote(cur.Path, name)
		if res := s.client.Mkdir(ctx, dst); !res.Success {
			util.Default.Printf("❌ mkdir %s failed: %v (%s)\n", dst, res.Err, res.Output)
		} else {
			util.Default.Printf("📁 Created %s\n", dst)
			events.GlobalBus.Publish(events.EventTreeRefresh, dst)
		}
	case "New disk image":
		createImageFlow(ctx, s, cur.Path)
	case "Jump to recent directory...":
		if target := showRecentDirsMenu(); target != "" {
			*stack = append(*stack, &remotefs.Node{
				Kind:  remotefs.KindDirectory,
				Label: path.Base(target),
				Path:  target,
			})
		}
	case "Move this directory to...":
		src := remotefs.Entry{Name: path.Base(cur.Path), Path: cur.Path, IsDir: true}
		if transferEntries(ctx, s, []remotefs.Entry{src}, remotefs.OpMove) && len(*stack) > 1 {
			// the directory we were standing in is gone
			*stack = (*stack)[:len(*stack)-1]
		}
	case "Copy this directory to...":
		src := remotefs.Entry{Name: path.Base(cur.Path), Path: cur.Path, IsDir: true}
		transferEntries(ctx, s, []remotefs.Entry{src}, remotefs.OpCopy)
	case "Delete this directory":
		if deleteRemote(ctx, s, cur.Path) && len(*stack) > 1 {
			*stack = (*stack)[:len(*stack)-1]
		}
	case "Exit browser":
		return true
	}
	return false
}

// createImageFlow prompts for the parameters of a new disk image and creates
// it in dir.
func createImageFlow(ctx context.Context, s *session, dir string) {
	imageType := promptSelect("Image type", []string{"d64", "d71", "d81", "dnp"})
	if imageType == "" {
		return
	}
	name := promptInput("File name (without extension)")
	if name == "" {
		return
	}
	label := promptInput("Disk label")
	if label == "" {
		return
	}
	tracks := 0
	if imageType == "d64" {
		t := promptSelect("Tracks", []string{"35", "40"})
		if t == "40" {
			tracks = 40
		} else if t == "35" {
			tracks = 35
		} else {
			return
		}
	}

	dst := remotefs.JoinRemote(dir, name+"."+imageType)
	if err := s.control.CreateImage(ctx, imageType, dst, label, tracks); err != nil {
		util.Default.Printf("❌ %v\n", err)
		return
	}
	util.Default.Printf("💾 Created %s\n", dst)
	events.GlobalBus.Publish(events.EventTreeRefresh, dst)
}

// transferEntries prompts for a target directory and runs the batch through
// the resolver. Returns true when every entry left its source location.
func transferEntries(ctx context.Context, s *session, sources []remotefs.Entry, op remotefs.Op) bool {
	target := promptInput("Target directory (remote path)")
	if target == "" {
		return false
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	outcomes, err := s.resolver.Transfer(ctx, sources, target, op)
	if err != nil {
		util.Default.Printf("❌ %v\n", err)
		return false
	}

	allGone := true
	for _, o := range outcomes {
		switch o.Status {
		case remotefs.StatusMoved, remotefs.StatusCopied:
			suffix := ""
			if o.Renamed {
				suffix = " (renamed to avoid a collision)"
			}
			util.Default.Printf("✅ %s %s -> %s%s\n", o.Status, o.Source, o.Dest, suffix)
		case remotefs.StatusSkipped:
			allGone = false
			util.Default.Printf("⏭️  skipped %s (already in target)\n", o.Source)
		case remotefs.StatusPartial:
			util.Default.Printf("⚠️  partial: %v\n", o.Err)
		case remotefs.StatusFailed:
			allGone = false
			util.Default.Printf("❌ %v\n", o.Err)
		}
	}
	events.GlobalBus.Publish(events.EventTreeRefresh, target)
	return allGone && op == remotefs.OpMove
}

// deleteRemote confirms and removes one remote path. Returns true on success.
func deleteRemote(ctx context.Context, s *session, remotePath string) bool {
	confirm := promptSelect(fmt.Sprintf("Delete %s?", remotePath), []string{"Delete", "Cancel"})
	if confirm != "Delete" {
		return false
	}
	if res := s.client.Remove(ctx, remotePath); !res.Success {
		util.Default.Printf("❌ rm %s failed: %v (%s)\n", remotePath, res.Err, res.Output)
		return false
	}
	util.Default.Printf("🗑️  Deleted %s\n", remotePath)
	events.GlobalBus.Publish(events.EventTreeRefresh, remotePath)
	return true
}

// showRecentDirsMenu lets the user pick a previously visited remote directory,
// with substring search. Returns "" when nothing was picked.
func showRecentDirsMenu() string {
	paths := history.GetAllPaths()
	if len(paths) == 0 {
		util.Default.Println("No recent directories yet.")
		return ""
	}

	util.Default.Suspend()
	defer util.Default.Resume()

	prompt := promptui.SelectWithAdd{
		Label:    "Recent remote directories (type to search)",
		Items:    paths,
		AddLabel: "Search",
	}

	idx, result, err := prompt.Run()
	if err != nil {
		return ""
	}

	if idx == -1 {
		// Search mode
		results := history.SearchPaths(result)
		if len(results) == 0 {
			return ""
		}
		searchPrompt := promptui.Select{
			Label: "Search results",
			Items: results,
		}
		if _, selected, err := searchPrompt.Run(); err == nil {
			return selected
		}
		return ""
	}
	return result
}

// promptSelect wraps promptui.Select with printer suspension so watcher
// output never corrupts the prompt. Returns "" when the user backs out.
func promptSelect(label string, items []string) string {
	util.Default.Suspend()
	defer util.Default.Resume()

	prompt := promptui.Select{
		Label: label,
		Items: items,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return ""
	}
	return result
}

// promptInput wraps promptui.Prompt the same way.
func promptInput(label string) string {
	util.Default.Suspend()
	defer util.Default.Resume()

	prompt := promptui.Prompt{Label: label}
	result, err := prompt.Run()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(result)
}
