package horse

import (
	"cmp"
	"fmt"
	"math"

	"github.com/blang/semver/v4"
)

// Version identifies a structure shape. It is compared lexicographically by
// major, minor, then patch.
type Version struct {
	Major, Minor, Patch uint16
}

// V is shorthand for Version{major, minor, patch}.
func V(major, minor, patch uint16) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses "MAJOR.MINOR.PATCH". Pre-release and build metadata
// are rejected since a Version cannot represent them.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.Parse(s)
	if err != nil {
		return Version{}, fmt.Errorf("horse: parse version %q: %w", s, err)
	}
	if len(sv.Pre) > 0 || len(sv.Build) > 0 {
		return Version{}, fmt.Errorf("horse: parse version %q: pre-release and build metadata are not supported", s)
	}
	if sv.Major > math.MaxUint16 || sv.Minor > math.MaxUint16 || sv.Patch > math.MaxUint16 {
		return Version{}, fmt.Errorf("horse: parse version %q: component exceeds %d", s, math.MaxUint16)
	}
	return Version{Major: uint16(sv.Major), Minor: uint16(sv.Minor), Patch: uint16(sv.Patch)}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Meant for
// package-level shape declarations.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp.Compare(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp.Compare(v.Minor, o.Minor)
	default:
		return cmp.Compare(v.Patch, o.Patch)
	}
}

func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }
