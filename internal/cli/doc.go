// Package cli defines the Cobra command tree for divineos. The root command
// runs the update supervisor; subcommands cover one-shot updates, build info
// and settings. Commands only wire flags and config to the internal packages.
package cli
