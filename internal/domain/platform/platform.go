package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Platform identifies a snapshot target. The zero value is not a valid platform.
type Platform int

const (
	// Unknown is the zero value and never resolves to a snapshot.
	Unknown Platform = iota
	// Mac is macOS on x86-64.
	Mac
	// Linux is Linux on x86-64.
	Linux
	// Win is 64-bit Windows.
	Win
)

// ErrUnknownPlatform is returned for names outside of the supported set.
var ErrUnknownPlatform = errors.New("unknown platform")

// metadata describes where a platform's snapshots live in the bucket.
type metadata struct {
	// name is the value accepted on the command line.
	name string
	// segment is the folder in the snapshot bucket.
	segment string
	// packageName is the archive file name inside a build folder.
	packageName string
}

//nolint:gochecknoglobals // Fixed lookup table indexed by Platform.
var table = [...]metadata{
	Unknown: {name: "unknown"},
	Mac:     {name: "mac", segment: "Mac", packageName: "chrome-mac.zip"},
	Linux:   {name: "linux", segment: "Linux", packageName: "chrome-linux.zip"},
	Win:     {name: "win", segment: "Win_x64", packageName: "chrome-win.zip"},
}

// All returns every valid platform in declaration order.
func All() []Platform {
	return []Platform{Mac, Linux, Win}
}

// Names returns the command line names of all valid platforms.
func Names() []string {
	platforms := All()

	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, p.String())
	}

	return names
}

// Parse converts a command line name into a Platform.
func Parse(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for _, p := range All() {
		if table[p].name == name {
			return p, nil
		}
	}

	return Unknown, fmt.Errorf("%q (expected one of %s): %w", s, strings.Join(Names(), ", "), ErrUnknownPlatform)
}

// IsValid reports whether p is one of the supported platforms.
func (p Platform) IsValid() bool {
	return p > Unknown && int(p) < len(table)
}

// String returns the command line name.
func (p Platform) String() string {
	if !p.IsValid() {
		return fmt.Sprintf("platform(%d)", int(p))
	}

	return table[p].name
}

// Segment returns the bucket folder, e.g. "Win_x64".
func (p Platform) Segment() string {
	if !p.IsValid() {
		return ""
	}

	return table[p].segment
}

// PackageName returns the archive name, e.g. "chrome-win.zip".
func (p Platform) PackageName() string {
	if !p.IsValid() {
		return ""
	}

	return table[p].packageName
}

// PackageBaseName returns the archive name without extension, which is also
// the top-level folder inside the archive.
func (p Platform) PackageBaseName() string {
	name := p.PackageName()

	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Set implements pflag.Value.
func (p *Platform) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

// Type implements pflag.Value.
func (p *Platform) Type() string {
	return "platform"
}
