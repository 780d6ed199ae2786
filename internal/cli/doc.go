// Package cli implements the run-rsv-metric command line.
//
// The root command runs one metric against one host:
//
//	run-rsv-metric -m <metric> -u <uri> [-v 0-3] [--vdt-location DIR]
//
// and walks a fixed pipeline: load the layered configuration, validate it
// (switching to the RSV user), check the grid credential, dispatch the
// probe under the job timeout, classify its output and report the result.
// Every stage before dispatch is fatal on error; after dispatch the result
// is always reported.
//
// Subcommands:
//
//	run-rsv-metric config   - print the validated configuration as YAML
//	run-rsv-metric list     - list installed metrics and configured hosts
//	run-rsv-metric version  - print build information
//
// Process settings are read through viper so that each flag has an
// environment fallback: --vdt-location falls back to VDT_LOCATION, then
// OSG_LOCATION; --verbose falls back to RSV_VERBOSE.
package cli
