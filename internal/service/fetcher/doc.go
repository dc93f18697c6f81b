// Package fetcher runs the chromium-fetch pipeline.
//
// It validates the output directory, merges command line overrides into the
// settings file, resolves the newest snapshot of a platform, downloads its
// archive and, when an install directory is given, hands the archive to the
// platform installer. Install failures are logged and do not fail the run.
package fetcher
