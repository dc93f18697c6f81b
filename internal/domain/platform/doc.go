// Package platform contains the closed set of platforms Chromium snapshots
// are published for, together with the bucket folder and archive name that
// belong to each of them.
package platform
