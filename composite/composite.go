// Package composite implements the CompositeDevice orchestrator from
// spec.md §4.4: the per-device runtime that owns a set of sources and
// targets, runs the central event-translation loop, enforces intercept
// mode, and routes output events back toward the physical hardware.
//
// Grounded on the teacher's single-goroutine-per-resource model
// (usbbus/virtualbus.VirtualBus, usbbus/server's select-loop worker),
// generalized from "one goroutine per USB bus" to "one goroutine per
// CompositeDevice event loop".
package composite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/profile"
	"github.com/ShadowBlip/InputPlumber-sub001/source"
	"github.com/ShadowBlip/InputPlumber-sub001/target"
	"github.com/ShadowBlip/InputPlumber-sub001/translator"
)

// InterceptMode governs how ProcessEvent routes events between the
// gamepad-class targets and the dbus overlay target, per spec.md §4.4
// step 4.
type InterceptMode uint8

const (
	InterceptNone InterceptMode = iota
	InterceptPass
	InterceptAlways
	InterceptGamepadOnly
)

func (m InterceptMode) String() string {
	switch m {
	case InterceptPass:
		return "pass"
	case InterceptAlways:
		return "always"
	case InterceptGamepadOnly:
		return "gamepad-only"
	default:
		return "none"
	}
}

// ParseInterceptMode parses the control surface's wire form of InterceptMode,
// the inverse of InterceptMode.String.
func ParseInterceptMode(s string) (InterceptMode, error) {
	switch s {
	case "none":
		return InterceptNone, nil
	case "pass":
		return InterceptPass, nil
	case "always":
		return InterceptAlways, nil
	case "gamepad-only":
		return InterceptGamepadOnly, nil
	default:
		return InterceptNone, fmt.Errorf("composite: unknown intercept mode %q", s)
	}
}

const (
	// eventChannelSize matches spec.md §5's bounded-channel capacity for
	// event channels.
	eventChannelSize = 2048
	// replyTimeout bounds every outbound command expecting a reply.
	replyTimeout = time.Second
	// reconcileDrainDelay is the brief pause target-set reconciliation
	// gives the kernel to process a retired target's final frame.
	reconcileDrainDelay = 10 * time.Millisecond
	// outputPollInterval matches the source runtime's raw-HID poll cadence;
	// fast enough that rumble/LED writes feel immediate.
	outputPollInterval = 4 * time.Millisecond
)

// TargetFactory is the input manager's half of target-set reconciliation:
// it creates a named target type and returns its handle, per spec.md §4.5.
type TargetFactory interface {
	CreateTarget(typeID string) (path string, dev target.Device, err error)
	DestroyTarget(path string)
}

type targetEntry struct {
	path string
	typ  string
	dev  target.Device
	// dbus is true for targets that advertise a nil capability set (the
	// overlay target's "any capability -> dbus" identity rule) and are
	// therefore never indexed by capability.
	dbus bool
}

// activationState tracks one SetInterceptActivation chord: while every
// member capability is pressed, it emits target=true; on the first member
// release after firing, it emits target=false.
type activationState struct {
	members []native.Capability
	target  native.Capability
	pressed map[native.Capability]struct{}
	fired   bool
}

func (a *activationState) feed(ev native.NativeEvent) (native.NativeEvent, bool) {
	isMember := false
	for _, m := range a.members {
		if m == ev.Capability {
			isMember = true
			break
		}
	}
	if !isMember {
		return native.NativeEvent{}, false
	}

	if ev.Value.AsBool() {
		a.pressed[ev.Capability] = struct{}{}
	} else {
		delete(a.pressed, ev.Capability)
		if a.fired {
			a.fired = false
			return native.NewEvent(a.target, native.Bool(false)), true
		}
		return native.NativeEvent{}, false
	}

	if a.fired {
		return native.NativeEvent{}, false
	}
	for _, m := range a.members {
		if _, ok := a.pressed[m]; !ok {
			return native.NativeEvent{}, false
		}
	}
	a.fired = true
	return native.NewEvent(a.target, native.Bool(true)), true
}

// CompositeDevice is the per-device orchestrator from spec.md §4.4. All
// state is owned by a single goroutine (Run); every exported method
// communicates with it over inbox, never touching state directly.
type CompositeDevice struct {
	name    string
	path    string
	logger  *slog.Logger
	factory TargetFactory

	inbox    chan func()
	done     chan struct{}
	stopOnce sync.Once

	sources map[string]source.Device
	targets []targetEntry
	queued  map[string]string // path -> typeID, awaiting manager attach
	pending []string          // desired types re-enqueued while queued is non-empty

	capIndex map[native.Capability]map[string]struct{}

	profileTable *translator.ProfileTable
	profileName  string

	mode InterceptMode
	// passGuideHeld is set while a guide press has lifted Pass to Always.
	passGuideHeld bool

	activations []*activationState

	suspendedTypes []string
}

// New constructs a CompositeDevice. Call Run in its own goroutine to start
// its event loop; nothing is processed until Run is running.
func New(name, path string, factory TargetFactory, logger *slog.Logger) *CompositeDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeDevice{
		name:     name,
		path:     path,
		logger:   logger,
		factory:  factory,
		inbox:    make(chan func(), eventChannelSize),
		done:     make(chan struct{}),
		sources:  make(map[string]source.Device),
		queued:   make(map[string]string),
		capIndex: make(map[native.Capability]map[string]struct{}),
	}
}

// Run drives the composite's single goroutine: it processes inbox commands
// and events, and periodically polls attached targets for output events,
// until ctx is canceled or Stop is called.
func (c *CompositeDevice) Run(ctx context.Context) {
	ticker := time.NewTicker(outputPollInterval)
	defer ticker.Stop()
	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-ticker.C:
			c.pollTargetOutputLocked()
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// trySend enqueues fn without blocking, per spec.md §5's backpressure
// policy; a full inbox drops the work and logs it.
func (c *CompositeDevice) trySend(fn func()) {
	select {
	case c.inbox <- fn:
	default:
		c.logger.Warn("composite inbound queue full, dropping", "name", c.name)
	}
}

// sync enqueues fn and blocks until it has run (or replyTimeout elapses),
// for command-style calls that need their effect or return value to be
// visible to the caller.
func (c *CompositeDevice) sync(fn func()) {
	doneCh := make(chan struct{})
	select {
	case c.inbox <- func() { fn(); close(doneCh) }:
	case <-time.After(replyTimeout):
		return
	}
	select {
	case <-doneCh:
	case <-time.After(replyTimeout):
	}
}

// AddSourceDevice starts dev and registers it with the composite, per
// spec.md's "the core is told attach this source" model.
func (c *CompositeDevice) AddSourceDevice(ctx context.Context, dev source.Device) error {
	if err := dev.Start(ctx, c); err != nil {
		return err
	}
	c.sync(func() { c.sources[dev.ID()] = dev })
	return nil
}

// Dispatch implements source.EventSink: a source's translated events enter
// the ProcessEvent pipeline at step 3 (profile translation), steps 1-2
// (capability-map translation and scheduled-release draining) having
// already run inside the source's own translate().
func (c *CompositeDevice) Dispatch(id string, events []native.NativeEvent) {
	c.trySend(func() {
		for _, ev := range events {
			c.processOne(id, ev)
		}
	})
}

// Stopped implements source.EventSink.
func (c *CompositeDevice) Stopped(ev source.StoppedEvent) {
	c.trySend(func() {
		delete(c.sources, ev.ID)
		if ev.Err != nil {
			c.logger.Error("source device stopped", "id", ev.ID, "error", ev.Err)
		} else {
			c.logger.Info("source device stopped", "id", ev.ID)
		}
		if len(c.sources) == 0 {
			c.closeDone()
		}
	})
}

func (c *CompositeDevice) closeDone() {
	c.stopOnce.Do(func() { close(c.done) })
}

// processOne implements ProcessEvent steps 3-6 for one already-translated
// native event.
func (c *CompositeDevice) processOne(sourceID string, ev native.NativeEvent) {
	for _, a := range c.activations {
		if synth, ok := a.feed(ev); ok {
			c.processOne(sourceID, synth)
		}
	}

	if c.profileTable != nil {
		if rule, ok := c.profileTable.Lookup(ev.Capability); ok {
			for _, out := range c.profileTable.Apply(rule, ev) {
				c.routeEvent(out)
			}
			return
		}
	}
	c.routeEvent(ev)
}

// routeEvent implements step 4 (intercept-mode routing) and steps 5-6
// (capability-index dispatch with Always/None suppression).
func (c *CompositeDevice) routeEvent(ev native.NativeEvent) {
	cap := ev.Capability

	if cap.IsGuideButton() {
		if c.mode == InterceptPass && ev.Value.AsBool() {
			c.mode = InterceptAlways
			c.passGuideHeld = true
		} else if c.passGuideHeld && !ev.Value.AsBool() {
			// The release is still routed under Always; Pass resumes after it.
			c.passGuideHeld = false
			defer func() { c.mode = InterceptPass }()
		}
	}

	if cap.IsDBus() {
		c.dispatchToDBus(ev)
		return
	}
	if c.mode == InterceptGamepadOnly && !cap.IsGamepad() {
		c.dispatchToDBus(ev)
		return
	}
	if c.mode == InterceptAlways {
		c.dispatchToDBus(ev)
		return
	}

	for path := range c.capIndex[cap] {
		if te := c.targetByPath(path); te != nil {
			te.dev.WriteEvent(ev)
		}
	}
}

func (c *CompositeDevice) dispatchToDBus(ev native.NativeEvent) {
	if c.mode == InterceptNone {
		return
	}
	for _, te := range c.targets {
		if te.dbus {
			te.dev.WriteEvent(ev)
		}
	}
}

func (c *CompositeDevice) targetByPath(path string) *targetEntry {
	for i := range c.targets {
		if c.targets[i].path == path {
			return &c.targets[i]
		}
	}
	return nil
}

// WriteSendEvent injects a caller-supplied synthetic event that bypasses
// source-side translation but is otherwise subject to profile translation
// and intercept routing, per spec.md §4.4.
func (c *CompositeDevice) WriteSendEvent(ev native.NativeEvent) {
	c.trySend(func() { c.processOne("", ev) })
}

// WriteChordEvent presses every capability in order, then releases them in
// reverse order, per spec.md §4.4's keyboard-macro command.
func (c *CompositeDevice) WriteChordEvent(caps []native.Capability) {
	c.trySend(func() {
		for _, cp := range caps {
			c.processOne("", native.NewEvent(cp, native.Bool(true)))
		}
		for i := len(caps) - 1; i >= 0; i-- {
			c.processOne("", native.NewEvent(caps[i], native.Bool(false)))
		}
	})
}

// SetInterceptActivation installs a transient chord that, while every
// member capability is held, emits targetCap, per spec.md §4.4 (typically
// used to synthesize a guide button on devices that lack one).
func (c *CompositeDevice) SetInterceptActivation(members []native.Capability, targetCap native.Capability) {
	c.sync(func() {
		c.activations = append(c.activations, &activationState{
			members: append([]native.Capability(nil), members...),
			target:  targetCap,
			pressed: make(map[native.Capability]struct{}),
		})
	})
}

// ProcessOutputEvent routes an output event (rumble, LED) from a target
// back to every owned source, per spec.md §2's reverse data flow. Sources
// without the relevant capability silently drop it.
func (c *CompositeDevice) ProcessOutputEvent(oe native.OutputEvent) {
	c.trySend(func() { c.processOutputEventLocked(oe) })
}

func (c *CompositeDevice) processOutputEventLocked(oe native.OutputEvent) {
	for _, dev := range c.sources {
		dev.WriteOutput(oe)
	}
}

func (c *CompositeDevice) pollTargetOutputLocked() {
	for _, te := range c.targets {
		if oe, ok := te.dev.PollOutput(); ok {
			c.processOutputEventLocked(oe)
		}
	}
}

// UpdateTargetCapabilities re-indexes path's capability set, for a virtual
// target whose surface changes at runtime (e.g. the unified target after
// re-announcing its capability report).
func (c *CompositeDevice) UpdateTargetCapabilities(path string, caps map[native.Capability]struct{}) {
	c.sync(func() {
		for cp, set := range c.capIndex {
			delete(set, path)
			if len(set) == 0 {
				delete(c.capIndex, cp)
			}
		}
		for cp := range caps {
			set := c.capIndex[cp]
			if set == nil {
				set = make(map[string]struct{})
				c.capIndex[cp] = set
			}
			set[path] = struct{}{}
		}
	})
}

// SetTargetDevices replaces the active target set, per spec.md §4.4's
// target-set reconciliation: targets whose type persists are kept, types no
// longer wanted are retired, and newly wanted types are created via
// TargetFactory.
func (c *CompositeDevice) SetTargetDevices(types []string) {
	c.sync(func() { c.reconcileTargets(types) })
}

func (c *CompositeDevice) reconcileTargets(desired []string) {
	if len(c.queued) > 0 {
		c.pending = append([]string(nil), desired...)
		return
	}

	want := make(map[string]int, len(desired))
	for _, t := range desired {
		want[t]++
	}

	kept := c.targets[:0]
	for _, te := range c.targets {
		if want[te.typ] > 0 {
			want[te.typ]--
			kept = append(kept, te)
			continue
		}
		c.retireTarget(te)
	}
	c.targets = kept

	for typ, n := range want {
		for i := 0; i < n; i++ {
			// CreateTarget is synchronous in this implementation, so the
			// queued set never observably holds this request; it exists to
			// support a TargetFactory that instead replies later via
			// AttachTargetDevice.
			path, dev, err := c.factory.CreateTarget(typ)
			if err != nil {
				c.logger.Error("create target failed", "type", typ, "error", err)
				continue
			}
			c.attachTargetLocked(path, typ, dev)
		}
	}

	if len(c.pending) > 0 && len(c.queued) == 0 {
		pending := c.pending
		c.pending = nil
		c.reconcileTargets(pending)
	}
}

func (c *CompositeDevice) retireTarget(te targetEntry) {
	te.dev.ClearState()
	time.Sleep(reconcileDrainDelay)
	te.dev.Stop()
	if !te.dbus {
		for cp, set := range c.capIndex {
			delete(set, te.path)
			if len(set) == 0 {
				delete(c.capIndex, cp)
			}
		}
	}
}

func (c *CompositeDevice) attachTargetLocked(path, typ string, dev target.Device) {
	caps := dev.Capabilities()
	te := targetEntry{path: path, typ: typ, dev: dev, dbus: caps == nil}
	if !te.dbus {
		for cp := range caps {
			set := c.capIndex[cp]
			if set == nil {
				set = make(map[string]struct{})
				c.capIndex[cp] = set
			}
			set[path] = struct{}{}
		}
	}
	c.targets = append(c.targets, te)
}

// AttachTargetDevice completes an asynchronous CreateTarget round trip
// (AttachTargetDevice in spec.md §4.4) for a TargetFactory that hands back
// a target after this call returns rather than within CreateTarget itself.
func (c *CompositeDevice) AttachTargetDevice(path, typ string, dev target.Device) {
	c.sync(func() {
		delete(c.queued, path)
		c.attachTargetLocked(path, typ, dev)
		if len(c.pending) > 0 && len(c.queued) == 0 {
			pending := c.pending
			c.pending = nil
			c.reconcileTargets(pending)
		}
	})
}

// LoadProfilePath atomically swaps in the profile remap table at path, per
// spec.md §4.4, together with the profile name. The profile's capability-map
// section is discarded: running sources and sources started later keep the
// capability map they were constructed with.
func (c *CompositeDevice) LoadProfilePath(path string) error {
	_, pt, name, err := profile.Load(path)
	if err != nil {
		return err
	}
	c.sync(func() {
		c.profileTable = pt
		c.profileName = name
	})
	return nil
}

// Suspend records the active target types and retires them, per spec.md
// §4.4's suspend/resume rule.
func (c *CompositeDevice) Suspend() {
	c.sync(func() {
		c.suspendedTypes = c.suspendedTypes[:0]
		for _, te := range c.targets {
			c.suspendedTypes = append(c.suspendedTypes, te.typ)
		}
		c.reconcileTargets(nil)
	})
}

// Resume restores the target set recorded by Suspend.
func (c *CompositeDevice) Resume() {
	var types []string
	c.sync(func() { types = append([]string(nil), c.suspendedTypes...) })
	c.SetTargetDevices(types)
}

func (c *CompositeDevice) SetInterceptMode(mode InterceptMode) {
	c.sync(func() {
		c.mode = mode
		c.passGuideHeld = false
	})
}

func (c *CompositeDevice) GetInterceptMode() InterceptMode {
	var out InterceptMode
	c.sync(func() { out = c.mode })
	return out
}

func (c *CompositeDevice) GetName() string {
	var out string
	c.sync(func() { out = c.name })
	return out
}

func (c *CompositeDevice) GetProfileName() string {
	var out string
	c.sync(func() { out = c.profileName })
	return out
}

func (c *CompositeDevice) GetSourceDevicePaths() []string {
	var out []string
	c.sync(func() {
		for id := range c.sources {
			out = append(out, id)
		}
	})
	return out
}

func (c *CompositeDevice) GetTargetDevicePaths() []string {
	var out []string
	c.sync(func() {
		for _, te := range c.targets {
			out = append(out, te.path)
		}
	})
	return out
}

// GetCapabilities returns the union of every owned source's capability set.
func (c *CompositeDevice) GetCapabilities() map[native.Capability]struct{} {
	out := make(map[native.Capability]struct{})
	c.sync(func() {
		for _, dev := range c.sources {
			for cp := range dev.Capabilities() {
				out[cp] = struct{}{}
			}
		}
	})
	return out
}

func (c *CompositeDevice) GetTargetCapabilities(path string) map[native.Capability]struct{} {
	var out map[native.Capability]struct{}
	c.sync(func() {
		if te := c.targetByPath(path); te != nil {
			out = te.dev.Capabilities()
		}
	})
	return out
}

// Stop drains the inbox, stops every source and target, and exits the
// event loop.
func (c *CompositeDevice) Stop() {
	c.sync(func() {
		for _, dev := range c.sources {
			dev.Stop()
		}
		for _, te := range c.targets {
			te.dev.ClearState()
			te.dev.Stop()
		}
		c.sources = make(map[string]source.Device)
		c.targets = nil
		c.capIndex = make(map[native.Capability]map[string]struct{})
	})
	c.closeDone()
}

// Done reports when the composite's event loop has exited, either because
// Stop was called or its last source stopped.
func (c *CompositeDevice) Done() <-chan struct{} { return c.done }

// Path returns the object path the input manager allocated for this
// composite.
func (c *CompositeDevice) Path() string { return c.path }
