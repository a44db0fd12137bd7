package encompass

import "github.com/grailbio/encompass/feature"

// Opts defines the optional parameters of the counter.
type Opts struct {
	// ExtraRadius pads every encompassing feature's range by this many
	// bases on each side when testing encompassment.
	ExtraRadius int

	// SkipSortCheck disables the sortedness pre-flight check in CountFiles.
	// The counter silently produces garbage on unsorted input, so only set
	// this for inputs verified by other means.
	SkipSortCheck bool

	// Header-line handling for the two inputs.
	EncompassedHasHeader  bool
	EncompassingHasHeader bool

	// Parse options for the two inputs.
	EncompassedParse  feature.ParseOpts
	EncompassingParse feature.ParseOpts
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{}
