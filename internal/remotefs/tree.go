package remotefs

import (
	"context"
	"fmt"

	"retro-sync/internal/remotecli"
)

// NodeKind distinguishes the node flavors the tree can produce.
type NodeKind int

const (
	KindSection NodeKind = iota
	KindMachineAction
	KindDirectory
	KindDiskImage
	KindFile
	KindParent
	KindPlaceholder
)

// Node is one row of the navigable remote tree.
type Node struct {
	Kind  NodeKind
	Label string
	// Path is the remote path for filesystem nodes, the action name for
	// machine nodes, empty otherwise.
	Path  string
	Entry *Entry
}

// Expandable reports whether the node can yield children.
func (n Node) Expandable() bool {
	switch n.Kind {
	case KindSection, KindDirectory, KindDiskImage, KindParent:
		return true
	default:
		return false
	}
}

// Section labels for the two fixed root nodes.
const (
	SectionMachine    = "Machine"
	SectionFileSystem = "File System"
)

// Lister is the slice of the device CLI the tree needs.
type Lister interface {
	List(ctx context.Context, path string) ([]remotecli.Entry, error)
}

// Tree models the remote device as a lazily-expanded tree: a fixed Machine
// control section plus the device filesystem. Directory children are fetched
// per expansion; nothing is cached between calls.
type Tree struct {
	remote         Lister
	machineActions []string
}

func NewTree(remote Lister, machineActions []string) *Tree {
	return &Tree{remote: remote, machineActions: machineActions}
}

// GetChildren yields the children of node. A nil node is the (invisible)
// root, which always yields exactly the two section nodes.
func (t *Tree) GetChildren(ctx context.Context, node *Node) ([]Node, error) {
	if node == nil {
		return []Node{
			{Kind: KindSection, Label: SectionMachine},
			{Kind: KindSection, Label: SectionFileSystem, Path: "/"},
		}, nil
	}

	if node.Kind == KindSection && node.Label == SectionMachine {
		// statically known, never fetched from the remote
		children := make([]Node, 0, len(t.machineActions))
		for _, action := range t.machineActions {
			children = append(children, Node{Kind: KindMachineAction, Label: action, Path: action})
		}
		return children, nil
	}

	if !node.Expandable() {
		return nil, fmt.Errorf("node %q has no children", node.Label)
	}

	listed, err := t.remote.List(ctx, node.Path)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(listed))
	for _, e := range listed {
		entries = append(entries, Entry{
			Name:  e.Name,
			IsDir: e.IsDir,
			Size:  e.Size,
			Path:  JoinRemote(node.Path, e.Name),
		})
	}
	SortEntries(entries)

	var children []Node

	// The synthetic parent entry is always first, and only appears below
	// the File System root.
	if node.Path != "/" {
		children = append(children, Node{
			Kind:  KindParent,
			Label: "..",
			Path:  ParentDir(node.Path),
		})
	}

	if len(entries) == 0 {
		// an empty expandable node would look ambiguous in the UI
		children = append(children, Node{Kind: KindPlaceholder, Label: "(empty)"})
		return children, nil
	}

	for i := range entries {
		e := entries[i]
		kind := KindFile
		switch {
		case e.IsDir:
			kind = KindDirectory
		case IsDiskImage(e.Name):
			kind = KindDiskImage
		}
		children = append(children, Node{
			Kind:  kind,
			Label: e.Label(),
			Path:  e.Path,
			Entry: &e,
		})
	}

	return children, nil
}
