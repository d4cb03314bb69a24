package scurry

import "fmt"

// Version is a migration script found on disk. It is immutable once loaded.
type Version struct {
	// Path is the location of the script within the session filesystem.
	Path string
	// Name is the part of the filename after the first "__", without the .sql extension.
	Name string
	// Version is the part of the filename before the first "__". Versions are ordered as plain
	// strings, so "10" sorts before "9".
	Version string
	// Hash is the lowercase hex SHA-1 digest of the file contents.
	Hash string
}

func (v *Version) String() string {
	return fmt.Sprintf("%s__%s (%s)", v.Version, v.Name, v.Hash)
}

// Target selects how far Migrate and SetSchemaLevel go.
type Target struct {
	version string
}

// Latest targets every available version.
func Latest() Target {
	return Target{}
}

// Specific targets every available version up to and including v.
func Specific(v string) Target {
	return Target{version: v}
}

// ParseTarget converts a user supplied string into a Target. "latest" and the empty string mean
// Latest, anything else is a specific version.
func ParseTarget(s string) Target {
	if s == "" || s == "latest" {
		return Latest()
	}
	return Specific(s)
}

// IsLatest reports whether t targets every available version.
func (t Target) IsLatest() bool {
	return t.version == ""
}

// Version returns the targeted version, or the empty string for Latest.
func (t Target) Version() string {
	return t.version
}

func (t Target) String() string {
	if t.IsLatest() {
		return "latest"
	}
	return t.version
}

// DifferenceKind is the kind of disagreement between an available script and the history.
type DifferenceKind int

const (
	// Missing means the script has not been applied.
	Missing DifferenceKind = iota + 1
	// VersionMismatch means the history has a different version at the script's position.
	VersionMismatch
	// HashMismatch means the script was applied but its contents changed since.
	HashMismatch
)

func (k DifferenceKind) String() string {
	switch k {
	case Missing:
		return "missing"
	case VersionMismatch:
		return "version mismatch"
	case HashMismatch:
		return "hash mismatch"
	default:
		return fmt.Sprintf("DifferenceKind(%d)", int(k))
	}
}

// Difference reports an available script that disagrees with the applied history.
type Difference struct {
	Kind    DifferenceKind
	Version *Version
}

func (d *Difference) String() string {
	return fmt.Sprintf("%s: %s__%s", d.Kind, d.Version.Version, d.Version.Name)
}
