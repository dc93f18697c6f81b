package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// develVersion marks a build without an injected version.
const develVersion = "dev"

// Build metadata, injected with
// -ldflags "-X github.com/oshokin/chromium-fetch/internal/version.Version=v1.2.3".
var (
	// Version is the release tag of the build.
	Version = develVersion
	// Commit is the git revision of the build.
	Commit = ""
	// BuildTime is the UTC build timestamp.
	BuildTime = ""
)

// Short returns the release tag. Builds made with `go install module@version`
// carry no ldflags, so the module version is used for them.
func Short() string {
	if Version != develVersion {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}

// Full returns the release tag with commit, build time and toolchain.
// Missing commit and build time are taken from the VCS stamp of the binary.
func Full() string {
	commit, builtAt := Commit, BuildTime

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch {
			case setting.Key == "vcs.revision" && commit == "":
				commit = setting.Value
			case setting.Key == "vcs.time" && builtAt == "":
				builtAt = setting.Value
			}
		}
	}

	if commit == "" {
		commit = "none"
	}

	if builtAt == "" {
		builtAt = "unknown"
	}

	return fmt.Sprintf("chromium-fetch %s, commit: %s, built at: %s, %s %s/%s",
		Short(), commit, builtAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent with every request to the snapshot bucket.
func UserAgent() string {
	return "chromium-fetch/" + Short()
}
