// Package config defines the generator settings and helpers to load, validate
// and save them in YAML format.
//
// Every field has a compiled-in default, so running without a settings file
// builds the standard Kodi channels into the sibling "generated" directory.
package config
