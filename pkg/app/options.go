package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Complete fills in any fields not set that are required to have valid data.
	Complete() error

	// Validate checks the options and returns every problem found at once.
	Validate() error
}

// NamedFlagSetOptions provides access to named flag sets.
type NamedFlagSetOptions interface {
	CliOptions

	// Flags returns the option flags grouped by section.
	Flags() cliflag.NamedFlagSets
}
