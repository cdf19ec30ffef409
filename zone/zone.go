// Package zone models the user's tag arrangement: which tags filter the
// universe (intersection, union, exclusion) and which span grid axes
// (rows, columns, slices).
//
// A Config is constructed fresh per request and is immutable once handed
// to the engine. The same tag name legally carries different meanings in
// different zones; the meaning is the zone, not the tag.
package zone

import (
	"fmt"
	"sort"
	"strings"
)

// Role identifies the zone a tag has been dropped into.
type Role uint8

const (
	// RoleIntersection requires the tag on every matching card.
	RoleIntersection Role = iota
	// RoleUnion requires at least one union tag on a matching card.
	RoleUnion
	// RoleExclusion disqualifies any card bearing the tag.
	RoleExclusion
	// RoleRow spans the tag across the grid's row axis.
	RoleRow
	// RoleColumn spans the tag across the grid's column axis.
	RoleColumn
	// RoleSlice spans the tag across an additional slice axis; the
	// assignment's Dim selects which one.
	RoleSlice
)

// String returns the lowercase zone name.
func (r Role) String() string {
	switch r {
	case RoleIntersection:
		return "intersection"
	case RoleUnion:
		return "union"
	case RoleExclusion:
		return "exclusion"
	case RoleRow:
		return "row"
	case RoleColumn:
		return "column"
	case RoleSlice:
		return "slice"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Assignment places one tag into one zone. Dim is only meaningful for
// RoleSlice and selects the slice axis (0-based).
type Assignment struct {
	Tag  string
	Role Role
	Dim  int
}

// Config is a complete zone configuration for one request.
//
// Tag order within any field never affects results; sets are canonicalized
// before hashing and applied in selectivity order during evaluation.
type Config struct {
	// Intersection tags must all be present (phase 1).
	Intersection []string
	// Union tags: at least one present, evaluated within the
	// intersection-restricted universe (phase 2).
	Union []string
	// Exclusion tags disqualify a card (phase 3, always last).
	Exclusion []string

	// Rows and Columns span the first two grid axes.
	Rows    []string
	Columns []string
	// Slices holds one tag set per additional axis, in axis order.
	Slices [][]string
}

// FromAssignments builds a Config from individual tag placements.
// Placement is dispatched through a single switch on Role; no tag subtyping.
func FromAssignments(assignments []Assignment) (Config, error) {
	var cfg Config
	for _, a := range assignments {
		switch a.Role {
		case RoleIntersection:
			cfg.Intersection = append(cfg.Intersection, a.Tag)
		case RoleUnion:
			cfg.Union = append(cfg.Union, a.Tag)
		case RoleExclusion:
			cfg.Exclusion = append(cfg.Exclusion, a.Tag)
		case RoleRow:
			cfg.Rows = append(cfg.Rows, a.Tag)
		case RoleColumn:
			cfg.Columns = append(cfg.Columns, a.Tag)
		case RoleSlice:
			if a.Dim < 0 {
				return Config{}, fmt.Errorf("zone: negative slice dimension %d for tag %q", a.Dim, a.Tag)
			}
			for len(cfg.Slices) <= a.Dim {
				cfg.Slices = append(cfg.Slices, nil)
			}
			cfg.Slices[a.Dim] = append(cfg.Slices[a.Dim], a.Tag)
		default:
			return Config{}, fmt.Errorf("zone: unknown role %v for tag %q", a.Role, a.Tag)
		}
	}
	return cfg, nil
}

// AmbiguityError reports a tag placed in more than one filter zone in the
// same request. The engine never guesses precedence; the caller must
// resolve the placement and retry.
type AmbiguityError struct {
	Tag   string
	Roles []Role
}

func (e *AmbiguityError) Error() string {
	names := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		names[i] = r.String()
	}
	return fmt.Sprintf("zone: tag %q assigned to multiple filter zones: %s", e.Tag, strings.Join(names, ", "))
}

// Validate rejects configurations where a tag appears in more than one of
// {intersection, union, exclusion}. Duplicates within a single zone are
// fine; the slices are treated as sets everywhere. Grid axes may overlap
// anything, including each other and the filter zones.
func (cfg Config) Validate() error {
	roles := make(map[string][]Role)
	for _, t := range cfg.Intersection {
		if !hasRole(roles[t], RoleIntersection) {
			roles[t] = append(roles[t], RoleIntersection)
		}
	}
	for _, t := range cfg.Union {
		if !hasRole(roles[t], RoleUnion) {
			roles[t] = append(roles[t], RoleUnion)
		}
	}
	for _, t := range cfg.Exclusion {
		if !hasRole(roles[t], RoleExclusion) {
			roles[t] = append(roles[t], RoleExclusion)
		}
	}

	// Deterministic reporting: pick the lexically smallest offender.
	var offender string
	for t, rs := range roles {
		if len(rs) > 1 && (offender == "" || t < offender) {
			offender = t
		}
	}
	if offender != "" {
		return &AmbiguityError{Tag: offender, Roles: roles[offender]}
	}
	return nil
}

func hasRole(rs []Role, r Role) bool {
	for _, have := range rs {
		if have == r {
			return true
		}
	}
	return false
}

// HasGrid reports whether any grid axis carries tags.
func (cfg Config) HasGrid() bool {
	if len(cfg.Rows) > 0 || len(cfg.Columns) > 0 {
		return true
	}
	for _, s := range cfg.Slices {
		if len(s) > 0 {
			return true
		}
	}
	return false
}

// Canonical returns a stable textual form of the configuration: every tag
// set is sorted and duplicates are dropped, so two configs that differ only
// in tag order canonicalize identically. Used as the cache key body.
func (cfg Config) Canonical() string {
	var b strings.Builder
	writeSet := func(prefix string, tags []string) {
		b.WriteString(prefix)
		for i, t := range sortedUnique(tags) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t)
		}
		b.WriteByte(';')
	}
	writeSet("i=", cfg.Intersection)
	writeSet("u=", cfg.Union)
	writeSet("x=", cfg.Exclusion)
	writeSet("r=", cfg.Rows)
	writeSet("c=", cfg.Columns)
	for i, s := range cfg.Slices {
		writeSet(fmt.Sprintf("s%d=", i), s)
	}
	return b.String()
}

func sortedUnique(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	sort.Strings(out)
	n := 0
	for i, t := range out {
		if i == 0 || t != out[i-1] {
			out[n] = t
			n++
		}
	}
	return out[:n]
}
