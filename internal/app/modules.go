package app

import (
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
	"github.com/neuroinformatics-unit/spikewrap/modules/bandpass_filter"
	"github.com/neuroinformatics-unit/spikewrap/modules/common_reference"
	"github.com/neuroinformatics-unit/spikewrap/modules/phase_shift"
)

// coreModules is the definitive list of preprocessing steps compiled into
// the spikewrap binary.
var coreModules = []registry.Module{
	&phase_shift.Module{},
	&bandpass_filter.Module{},
	&common_reference.Module{},
}
