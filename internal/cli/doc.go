// Parses flags and dispatches the wharf subcommands.
//
// The tool accepts the following global flags:
//
//	-q, --quiet     Only log errors.
//	-v, --verbose   Log debug detail.
//	    --debug     Log debug detail with source locations.
//
// After parsing, the default logger is reconfigured to reflect the
// requested level before the selected command runs.
package cli
