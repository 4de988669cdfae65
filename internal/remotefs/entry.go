package remotefs

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Entry represents one filesystem object on the remote device. Entries are
// rebuilt fresh on every directory listing and never mutated; a rename
// produces a new logical entry.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
	Path  string
}

// FileClass is the deterministic classification of a filename by extension.
type FileClass int

const (
	ClassUnsupported FileClass = iota
	ClassText
	ClassBinary
)

var textExtensions = map[string]bool{
	".asm": true,
	".s":   true,
	".inc": true,
	".src": true,
	".txt": true,
	".bas": true,
	".cfg": true,
	".md":  true,
}

var binaryExtensions = map[string]bool{
	".prg": true,
	".crt": true,
	".bin": true,
	".sid": true,
	".kla": true,
	".koa": true,
}

// diskImageTypes maps recognized disk-image extensions to the image type
// passed to the mount collaborator. The GCR-track variants map to their
// sector-image counterparts for mount purposes.
var diskImageTypes = map[string]string{
	".d64": "d64",
	".d71": "d71",
	".d81": "d81",
	".g64": "d64",
	".g71": "d71",
	".dnp": "dnp",
}

// Classify maps a filename to its file class. Pure function of the
// lower-cased extension; contents and remote metadata are never consulted.
func Classify(name string) FileClass {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case textExtensions[ext]:
		return ClassText
	case binaryExtensions[ext]:
		return ClassBinary
	default:
		return ClassUnsupported
	}
}

// IsOpenable reports whether the sync manager handles this filename at all.
func IsOpenable(name string) bool {
	return Classify(name) != ClassUnsupported
}

// IsDiskImage reports whether the filename is a mountable disk-image
// container. Disk images are navigable in the tree as if they were
// directories.
func IsDiskImage(name string) bool {
	_, ok := diskImageTypes[strings.ToLower(path.Ext(name))]
	return ok
}

// MountType derives the mount image type from a filename extension,
// canonicalizing GCR variants (g64 -> d64, g71 -> d71). Returns false for
// unrecognized extensions.
func MountType(name string) (string, bool) {
	typ, ok := diskImageTypes[strings.ToLower(path.Ext(name))]
	return typ, ok
}

// SortEntries orders a listing for display: directories before files, then
// case-sensitive lexicographic by name within each group.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

// UniqueName resolves a filename collision by appending _1, _2, ... before
// the extension until the name no longer collides with the taken set.
func UniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Label renders an entry for menu display: name, plus a humanized size for
// files.
func (e Entry) Label() string {
	if e.IsDir {
		return e.Name + "/"
	}
	return fmt.Sprintf("%s  (%s)", e.Name, humanize.Bytes(uint64(e.Size)))
}

// JoinRemote joins slash-separated remote path components.
func JoinRemote(elem ...string) string {
	return path.Join(elem...)
}

// ParentDir returns the remote parent directory of a remote path.
func ParentDir(remotePath string) string {
	return path.Dir(remotePath)
}
