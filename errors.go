package cardgrid

import (
	"errors"

	"github.com/multicardz/cardgrid/grid"
	"github.com/multicardz/cardgrid/zone"
)

// The two caller-visible computational errors. Unknown tags are not errors
// (they contribute empty matches), and cache faults never surface; the
// facade falls through to direct computation.

// IsAmbiguousZone reports whether err is a zone.AmbiguityError: a tag
// placed in more than one of the intersection, union and exclusion zones.
// The configuration must be corrected before retrying; recomputation
// without a change is deterministic and would fail identically.
func IsAmbiguousZone(err error) bool {
	var ae *zone.AmbiguityError
	return errors.As(err, &ae)
}

// IsDimensionOverflow reports whether err is a grid.OverflowError: the
// configured axes would span more cells than the safety ceiling allows.
func IsDimensionOverflow(err error) bool {
	var oe *grid.OverflowError
	return errors.As(err, &oe)
}
