package model

import "github.com/asgen-go/asgen/internal/hints"

// generalHintID is the synthetic id hints are filed under when they apply
// to the whole package rather than one component (spec §3, §7).
const generalHintID = "general"

// componentState is the per-component hint state machine from spec §4.7:
// alive -> dropped is a one-way transition triggered by an error-severity
// hint. Hints keep accumulating after drop; they just don't "undrop" it.
type componentState int

const (
	stateAlive componentState = iota
	stateDropped
)

// GeneratorResult is the per-package container described in spec §3: the
// owning package, its extracted components keyed by cid, a GCID per
// component, hints per component (or "general"), and an "ignored" flag for
// packages that produced nothing of interest.
type GeneratorResult struct {
	Pkg Package

	components map[string]*Component
	states     map[string]componentState
	gcids      map[string]string
	hintLists  map[string][]hints.Hint

	// UnitIgnored marks a package that produced no components and no
	// hints at all (spec §4.2 addGeneratorResult: unitIgnored -> "ignore").
	UnitIgnored bool
}

// NewGeneratorResult creates an empty result bound to pkg.
func NewGeneratorResult(pkg Package) *GeneratorResult {
	return &GeneratorResult{
		Pkg:        pkg,
		components: make(map[string]*Component),
		states:     make(map[string]componentState),
		gcids:      make(map[string]string),
		hintLists:  make(map[string][]hints.Hint),
	}
}

// AddComponent registers a component (alive by default) with the result.
func (r *GeneratorResult) AddComponent(c *Component) {
	r.components[c.ID] = c
	r.states[c.ID] = stateAlive
}

// RemoveComponent drops a component immediately, independent of hints
// (used by finalize() for minimum-validation failures after adding the
// corresponding hint).
func (r *GeneratorResult) RemoveComponent(cid string) {
	delete(r.components, cid)
	delete(r.gcids, cid)
}

// Component returns the live component for cid, or nil.
func (r *GeneratorResult) Component(cid string) *Component {
	return r.components[cid]
}

// Components returns a snapshot slice of all currently alive components,
// in a stable order (sorted by cid) so callers may safely mutate the
// result's map while iterating over the snapshot (spec §9).
func (r *GeneratorResult) Components() []*Component {
	out := make([]*Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sortComponentsByID(out)
	return out
}

// SetGCID records the computed GCID for a component.
func (r *GeneratorResult) SetGCID(cid, gcid string) {
	r.gcids[cid] = gcid
}

// GCID returns the GCID previously computed for cid, if any.
func (r *GeneratorResult) GCID(cid string) (string, bool) {
	g, ok := r.gcids[cid]
	return g, ok
}

// GCIDs returns every GCID currently recorded for alive components, in
// the same stable cid order as Components().
func (r *GeneratorResult) GCIDs() []string {
	var out []string
	for _, c := range r.Components() {
		if g, ok := r.gcids[c.ID]; ok {
			out = append(out, g)
		}
	}
	return out
}

// AddHint records a hint against cid (or "general"). If the registry
// reports ERROR severity for tag, the owning component transitions to
// dropped; the hint itself is still recorded (spec §4.7: "subsequent
// addHint calls on that cid are permitted"). Returns true if the hint's
// severity dropped the component.
func (r *GeneratorResult) AddHint(reg *hints.Registry, cid, tag string, params map[string]string) bool {
	r.hintLists[cid] = append(r.hintLists[cid], hints.Hint{Tag: tag, Params: params})

	sev := reg.Severity(tag)
	if sev.Drops() && cid != generalHintID {
		r.states[cid] = stateDropped
		return true
	}
	return false
}

// HintsFor returns the accumulated hints for cid (or "general").
func (r *GeneratorResult) HintsFor(cid string) []hints.Hint {
	return r.hintLists[cid]
}

// AllHints returns every recorded hint across all ids (components and
// "general"), keyed by id, used when serializing the hints JSON file.
func (r *GeneratorResult) AllHints() map[string][]hints.Hint {
	return r.hintLists
}

// HasHints reports whether any hint at all was recorded for this package.
func (r *GeneratorResult) HasHints() bool {
	return len(r.hintLists) > 0
}

// Finalize applies the hint-severity invariant from spec §8: any component
// whose state is "dropped" is removed from the result's component set. It
// must be called once, after all extraction steps, before DataStore
// insertion.
func (r *GeneratorResult) Finalize() {
	for cid, st := range r.states {
		if st == stateDropped {
			delete(r.components, cid)
			delete(r.gcids, cid)
		}
	}
}

func sortComponentsByID(cs []*Component) {
	// Simple insertion sort: result sets are small (a handful of
	// components per package), so this avoids pulling in sort for a
	// negligible gain while keeping output deterministic.
	for i := 1; i < len(cs); i++ {
		j := i
		for j > 0 && cs[j-1].ID > cs[j].ID {
			cs[j-1], cs[j] = cs[j], cs[j-1]
			j--
		}
	}
}
