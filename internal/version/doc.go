// Package version reports what build of chromium-fetch is running.
//
// The release tag, commit and build time come from ldflags and fall back to
// the build info Go embeds in every binary. The same tag is used in the
// User-Agent of bucket requests.
package version
