package translator

import (
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
)

// DefaultDelayedChordRelease is the 100ms scheduled-release delay specified
// for the delayed-chord mapping in spec.md §4.3.
const DefaultDelayedChordRelease = 100 * time.Millisecond

// Translator is a stateful filter instantiated per source from a
// CapabilityMap. It sits between a source's raw decoded events and the
// composite's event bus.
type Translator struct {
	cm    *CapabilityMap
	sched *scheduledQueue
	now   func() time.Time

	// Chord bookkeeping, per mapping index: which member capabilities are
	// currently "active" (pressed and not yet consumed by a firing) and
	// which have been "used" by a fired chord, per spec.md §4.3.
	active map[int]map[native.Capability]struct{}
	used   map[int]map[native.Capability]struct{}
	fired  map[int]bool

	// DelayedChord bookkeeping: whether the source event is currently
	// considered "active" (so further releases don't re-trigger).
	delayedActive map[int]bool
}

// New instantiates a Translator bound to an immutable CapabilityMap.
func New(cm *CapabilityMap) *Translator {
	return &Translator{
		cm:            cm,
		sched:         newScheduledQueue(),
		now:           time.Now,
		active:        make(map[int]map[native.Capability]struct{}),
		used:          make(map[int]map[native.Capability]struct{}),
		fired:         make(map[int]bool),
		delayedActive: make(map[int]bool),
	}
}

// Feed processes one raw decoded source event and returns zero, one, or many
// translated native events.
func (t *Translator) Feed(ev native.NativeEvent) []native.NativeEvent {
	idxs := t.cm.bySource[ev.Capability]
	if len(idxs) == 0 {
		return []native.NativeEvent{ev}
	}
	var out []native.NativeEvent
	for _, idx := range idxs {
		m := t.cm.mappings[idx]
		switch m.Kind {
		case MappingChord:
			out = append(out, t.feedChord(idx, m, ev)...)
		case MappingDelayedChord:
			out = append(out, t.feedDelayedChord(idx, m, ev)...)
		case MappingMultiSource:
			out = append(out, t.feedMultiSource(m, ev)...)
		}
	}
	return out
}

// Poll drains scheduled releases that are due by the translator's clock. The
// owning source calls this on every poll tick (source.base.translate).
func (t *Translator) Poll() []native.NativeEvent {
	t.sched.now = t.now
	return t.sched.DrainDue()
}

func (t *Translator) feedChord(idx int, m Mapping, ev native.NativeEvent) []native.NativeEvent {
	if t.active[idx] == nil {
		t.active[idx] = make(map[native.Capability]struct{})
	}
	if t.used[idx] == nil {
		t.used[idx] = make(map[native.Capability]struct{})
	}

	pressed := ev.Value.AsBool()
	if pressed {
		t.active[idx][ev.Capability] = struct{}{}
	} else {
		// A release of a member already consumed by a fired chord produces
		// the chord's single release and clears the "used" bookkeeping for
		// that member; it must never re-press the raw source event.
		if _, wasUsed := t.used[idx][ev.Capability]; wasUsed {
			delete(t.used[idx], ev.Capability)
			delete(t.active[idx], ev.Capability)
			if len(t.used[idx]) == 0 && t.fired[idx] {
				t.fired[idx] = false
				return []native.NativeEvent{native.NewEvent(m.Target, native.Bool(false))}
			}
			return nil
		}
		delete(t.active[idx], ev.Capability)
		return nil
	}

	if t.fired[idx] {
		// Already fired; absorb further presses of members silently.
		return nil
	}

	for _, member := range m.Members {
		if _, ok := t.active[idx][member]; !ok {
			return nil
		}
	}

	// Complete: move members from active to used and fire.
	for _, member := range m.Members {
		t.used[idx][member] = struct{}{}
		delete(t.active[idx], member)
	}
	t.fired[idx] = true
	return []native.NativeEvent{native.NewEvent(m.Target, native.Bool(true))}
}

func (t *Translator) feedDelayedChord(idx int, m Mapping, ev native.NativeEvent) []native.NativeEvent {
	pressed := ev.Value.AsBool()
	if pressed {
		t.delayedActive[idx] = true
		return nil
	}
	if !t.delayedActive[idx] {
		// Release while not considered active: does not propagate.
		return nil
	}
	t.delayedActive[idx] = false

	delay := DefaultDelayedChordRelease
	if m.DelayDuration > 0 {
		delay = time.Duration(m.DelayDuration) * time.Millisecond
	}
	t.sched.Push(native.Scheduled(m.Target, native.Bool(false), t.now().Add(delay)))
	return []native.NativeEvent{native.NewEvent(m.Target, native.Bool(true))}
}

func (t *Translator) feedMultiSource(m Mapping, ev native.NativeEvent) []native.NativeEvent {
	var out []native.NativeEvent
	sign := signOf(ev.Value)
	for _, fo := range m.FanOuts {
		if fo.RequireSign != 0 && fo.RequireSign != sign {
			continue
		}
		out = append(out, native.NewEvent(fo.Target, ev.Value))
	}
	return out
}

func signOf(v native.InputValue) int {
	f := v.AsFloat()
	if v.X != nil {
		f = *v.X
	} else if v.Y != nil {
		f = *v.Y
	}
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
