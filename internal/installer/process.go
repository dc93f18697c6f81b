package installer

import (
	"context"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/chromium-fetch/internal/logger"
)

// ProcessLister returns the processes running on the machine.
type ProcessLister func() ([]ps.Process, error)

// browserExecutables are the lower-cased process names of a running Chromium.
//
//nolint:gochecknoglobals // Read-only lookup set.
var browserExecutables = map[string]struct{}{
	"chrome.exe": {},
	"chrome":     {},
	"chromium":   {},
}

// runningBrowsers returns the processes that look like a Chromium browser.
func runningBrowsers(list ProcessLister) ([]ps.Process, error) {
	processes, err := list()
	if err != nil {
		return nil, err
	}

	var browsers []ps.Process

	for _, process := range processes {
		if _, found := browserExecutables[strings.ToLower(process.Executable())]; found {
			browsers = append(browsers, process)
		}
	}

	return browsers, nil
}

// warnIfBrowserRunning logs every running Chromium process. Files held open by
// them cannot be replaced on Windows.
func (i *Installer) warnIfBrowserRunning(ctx context.Context) {
	browsers, err := runningBrowsers(i.processes)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	for _, browser := range browsers {
		logger.WarnKV(ctx, "Chromium is running, locked files may prevent the installation",
			"pid", browser.Pid(), "executable", browser.Executable())
	}
}
