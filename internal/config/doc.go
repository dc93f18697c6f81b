// Package config defines the settings file of chromium-fetch and provides
// helpers to load, validate and save it in YAML format.
//
// The file is optional: without it the public snapshot bucket is used with
// the proxy taken from the environment and the system certificate pool.
package config
