// Package snapshot talks to the Chromium snapshot bucket.
//
// A Client resolves the newest build of a platform from its LAST_CHANGE
// marker and downloads the matching archive. Proxy, root CA and timeout are
// fixed when the client is built and apply to every request it makes.
package snapshot
