// Package config defines the YAML settings of the update server and helpers
// to load, validate and save them.
//
// Every field has a default, so the server runs without a configuration file.
package config
