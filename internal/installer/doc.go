// Package installer unpacks a downloaded Chromium archive.
//
// Windows archives are extracted into a scratch directory next to the
// archive and their top-level folder is copied over the install directory.
// Mac archives are only extracted. Linux is left to the system package
// manager.
package installer
