// Command chromium-fetch downloads the newest Chromium snapshot of a platform
// and optionally installs it.
package main

import "github.com/oshokin/chromium-fetch/cmd/chromium-fetch/cmd"

func main() {
	cmd.Execute()
}
