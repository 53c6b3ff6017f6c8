// Package translator implements the per-source capability map (chord,
// delayed-chord, multi-source fan-out) and the per-composite profile
// translation table described in spec.md §4.3.
package translator

import "github.com/ShadowBlip/InputPlumber-sub001/native"

// MappingKind discriminates the three capability-map dispatch styles.
type MappingKind uint8

const (
	MappingChord MappingKind = iota
	MappingDelayedChord
	MappingMultiSource
)

// FanOut describes one leg of a multi-source mapping: the target capability
// to emit and an optional sign filter (only fire when the source axis
// component has this sign: X, or Y when X is absent), used to split an
// 8-way hat into four buttons.
type FanOut struct {
	Target      native.Capability
	RequireSign int // -1, 0 (any), or +1
}

// Mapping is one entry in a CapabilityMap.
type Mapping struct {
	Kind MappingKind

	// Chord: all of Members must be "pressed" (InputValue.AsBool) at once.
	Members []native.Capability
	Target  native.Capability // Chord/DelayedChord target

	// DelayedChord: Members[0]'s release triggers the delayed release.
	DelayDuration int64 // milliseconds; 0 defaults to 100ms per spec.md §4.3

	// MultiSource: Members[0] is the single source capability.
	FanOuts []FanOut
}

// CapabilityMap is the declarative, immutable rewrite table a Translator is
// instantiated from. It is built once (typically by profile/ from a
// configuration file) and shared read-only across translator instances.
type CapabilityMap struct {
	mappings []Mapping
	// bySource indexes mappings by every source capability they reference,
	// so Feed doesn't scan the whole table per event.
	bySource map[native.Capability][]int
}

// NewCapabilityMap builds an index over the given mappings.
func NewCapabilityMap(mappings []Mapping) *CapabilityMap {
	cm := &CapabilityMap{
		mappings: mappings,
		bySource: make(map[native.Capability][]int),
	}
	for i, m := range mappings {
		for _, member := range m.sourceCaps() {
			cm.bySource[member] = append(cm.bySource[member], i)
		}
	}
	return cm
}

func (m Mapping) sourceCaps() []native.Capability {
	switch m.Kind {
	case MappingMultiSource:
		if len(m.Members) > 0 {
			return m.Members[:1]
		}
		return nil
	default:
		return m.Members
	}
}
