// Package manager implements the process-wide input-manager singleton from
// spec.md §4.5: it creates CompositeDevices, creates and attaches targets,
// allocates object paths, and reaps finished composites. No input data
// flows through it; it is a control-plane component only.
//
// Grounded on the teacher's control/device_registry.go (case-insensitive
// string-keyed registry of device constructors) for the target-type
// registry, and usbbus/virtualbus.VirtualBus's smallest-unused-integer
// allocator, generalized from USB bus/device numbers to composite/target
// object-path suffixes.
package manager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ShadowBlip/InputPlumber-sub001/composite"
	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/target"
	"github.com/ShadowBlip/InputPlumber-sub001/target/kernelbus"
	"github.com/ShadowBlip/InputPlumber-sub001/target/overlay"
	"github.com/ShadowBlip/InputPlumber-sub001/target/unified"
	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/usb"
	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/virtualbus"
)

const pathPrefix = "/org/inputplumber"

type ctorFunc func() (target.Device, error)

// kernelbusCtors is the target-type registry for the virtual-USB-bus-backed
// targets, keyed by the same type ids SetTargetDevices accepts.
var kernelbusCtors = map[string]ctorFunc{
	"xbox360": func() (target.Device, error) { return kernelbus.NewXbox360(), nil },
	"ds4": func() (target.Device, error) {
		return kernelbus.NewDualShock4()
	},
	"keyboard": func() (target.Device, error) {
		return kernelbus.NewKeyboard()
	},
	"mouse": func() (target.Device, error) {
		return kernelbus.NewMouse()
	},
	"deck": func() (target.Device, error) {
		return kernelbus.NewSteamDeck(), nil
	},
	"touchpad": func() (target.Device, error) {
		return kernelbus.NewTouchpad()
	},
	"touchscreen": func() (target.Device, error) {
		return kernelbus.NewTouchScreen()
	},
}

// busDeviceOf extracts the legacy usb.Device a kernelbus wrapper carries, so
// it can be registered on the virtual USB bus. Returns ok=false for target
// types that own no kernel resource (dbus, unified).
func busDeviceOf(dev target.Device) (usb.Device, bool) {
	switch t := dev.(type) {
	case *kernelbus.Xbox360:
		return t.Device(), true
	case *kernelbus.DualShock4:
		return t.Device(), true
	case *kernelbus.Keyboard:
		return t.Device(), true
	case *kernelbus.Mouse:
		return t.Device(), true
	case *kernelbus.SteamDeck:
		return t.Device(), true
	case *kernelbus.Touchpad:
		return t.Device(), true
	case *kernelbus.TouchScreen:
		return t.Device(), true
	default:
		return nil, false
	}
}

// logSink is the default overlay.Sink: it logs dbus overlay actions rather
// than dispatching them anywhere, until control/ injects a real session-bus
// broadcaster via SetDBusSink.
type logSink struct{ logger *slog.Logger }

func (s logSink) Dispatch(a overlay.Action) {
	s.logger.Debug("dbus overlay action", "name", a.Name, "pressed", a.Pressed)
}

func defaultUnifiedCapabilities() []native.Capability {
	return []native.Capability{
		native.NewGamepadButton(native.ButtonSouth),
		native.NewGamepadButton(native.ButtonEast),
		native.NewGamepadButton(native.ButtonNorth),
		native.NewGamepadButton(native.ButtonWest),
		native.NewGamepadButton(native.ButtonStart),
		native.NewGamepadButton(native.ButtonSelect),
		native.NewGamepadButton(native.ButtonGuide),
		native.NewGamepadAxis(native.AxisLeftStick),
		native.NewGamepadAxis(native.AxisRightStick),
		native.NewGamepadTrigger(native.TriggerLeftTrigger),
		native.NewGamepadTrigger(native.TriggerRightTrigger),
	}
}

// Manager is the process-wide input-manager singleton. Exactly one should
// exist per daemon instance.
type Manager struct {
	mu     sync.Mutex
	logger *slog.Logger
	bus    *virtualbus.VirtualBus

	composites map[string]*composite.CompositeDevice
	bySource   map[string]*composite.CompositeDevice
	targets    map[string]target.Device

	nextCompositeSuffix int
	usedCompositeSuffix map[int]bool
	nextTargetSuffix    int
	usedTargetSuffix    map[int]bool

	dbusSink            overlay.Sink
	unifiedWriter       io.Writer
	unifiedCapabilities []native.Capability
}

// New constructs a Manager backed by a fresh virtual USB bus for kernelbus
// targets. Pass a nil logger to use slog.Default().
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger:              logger,
		bus:                 virtualbus.New(),
		composites:          make(map[string]*composite.CompositeDevice),
		bySource:            make(map[string]*composite.CompositeDevice),
		targets:             make(map[string]target.Device),
		usedCompositeSuffix: make(map[int]bool),
		usedTargetSuffix:    make(map[int]bool),
		unifiedWriter:       io.Discard,
		unifiedCapabilities: defaultUnifiedCapabilities(),
	}
	m.dbusSink = logSink{logger: logger}
	return m
}

// SetDBusSink installs the overlay.Sink every future "dbus" target is
// constructed with, replacing the default logging sink.
func (m *Manager) SetDBusSink(sink overlay.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dbusSink = sink
}

// SetUnifiedWriter installs the io.Writer (typically a websocket connection)
// every future "unified" target streams capability reports and frames to.
func (m *Manager) SetUnifiedWriter(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unifiedWriter = w
}

// SetUnifiedCapabilities overrides the capability catalog future "unified"
// targets advertise.
func (m *Manager) SetUnifiedCapabilities(caps []native.Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unifiedCapabilities = caps
}

// CreateComposite allocates a path, constructs a CompositeDevice bound to
// this manager as its TargetFactory, starts its event loop, and registers
// it for reaping once its last source stops.
func (m *Manager) CreateComposite(ctx context.Context, name string) *composite.CompositeDevice {
	m.mu.Lock()
	path := m.allocPath(&m.nextCompositeSuffix, m.usedCompositeSuffix, "CompositeDevice")
	m.mu.Unlock()

	cd := composite.New(name, path, m, m.logger)

	m.mu.Lock()
	m.composites[path] = cd
	m.mu.Unlock()

	go cd.Run(ctx)
	go m.reap(cd)
	return cd
}

func (m *Manager) reap(cd *composite.CompositeDevice) {
	<-cd.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.composites, cd.Path())
	for id, owner := range m.bySource {
		if owner == cd {
			delete(m.bySource, id)
		}
	}
	m.logger.Info("reaped composite device", "path", cd.Path())
}

// AttachSource records that source id is owned by cd, for hotplug-discovery
// policy (external to this package per spec.md §4.1/§4.5) to consult.
func (m *Manager) AttachSource(id string, cd *composite.CompositeDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySource[id] = cd
}

// CompositeForSource looks up the composite owning source id, if any.
func (m *Manager) CompositeForSource(id string) (*composite.CompositeDevice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cd, ok := m.bySource[id]
	return cd, ok
}

// Composites returns every live composite, for the control surface's
// object-enumeration commands.
func (m *Manager) Composites() []*composite.CompositeDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*composite.CompositeDevice, 0, len(m.composites))
	for _, cd := range m.composites {
		out = append(out, cd)
	}
	return out
}

// Bus returns the virtual USB bus backing every kernelbus target, for the
// daemon to register with usbbus/server's USB/IP listener.
func (m *Manager) Bus() *virtualbus.VirtualBus { return m.bus }

// TargetByPath looks up a target handle by its allocated path.
func (m *Manager) TargetByPath(path string) (target.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.targets[path]
	return dev, ok
}

// CompositeByID looks up a composite by the bare numeric suffix CreateComposite
// allocated it (e.g. "1" for "/org/inputplumber/CompositeDevice1"), so the
// control surface can route on a single path segment instead of splitting
// slashes out of a full object path.
func (m *Manager) CompositeByID(id string) (*composite.CompositeDevice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cd, ok := m.composites[fmt.Sprintf("%s/CompositeDevice%s", pathPrefix, id)]
	return cd, ok
}

// TargetByID looks up a target by the bare numeric suffix CreateTarget
// allocated it together with the type id it was created with (e.g. "xbox360"
// + "1" for "/org/inputplumber/xbox3601").
func (m *Manager) TargetByID(typeID, id string) (target.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.targets[fmt.Sprintf("%s/%s%s", pathPrefix, typeID, id)]
	return dev, ok
}

// CreateTarget implements composite.TargetFactory: construct a target of
// typeID, registering kernelbus types on the virtual USB bus, and allocate
// it a path.
func (m *Manager) CreateTarget(typeID string) (string, target.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dev target.Device
	switch typeID {
	case "dbus":
		dev = overlay.New(m.dbusSink)
	case "unified":
		dev = unified.New(m.unifiedWriter, m.unifiedCapabilities)
	default:
		ctor, ok := kernelbusCtors[typeID]
		if !ok {
			return "", nil, fmt.Errorf("manager: unknown target type %q", typeID)
		}
		created, err := ctor()
		if err != nil {
			return "", nil, fmt.Errorf("manager: create target %q: %w", typeID, err)
		}
		dev = created
		if usbDev, ok := busDeviceOf(dev); ok {
			if _, err := m.bus.Add(usbDev); err != nil {
				return "", nil, fmt.Errorf("manager: register target %q on bus: %w", typeID, err)
			}
		}
	}

	path := m.allocPath(&m.nextTargetSuffix, m.usedTargetSuffix, typeID)
	m.targets[path] = dev
	return path, dev, nil
}

// DestroyTarget implements composite.TargetFactory.
func (m *Manager) DestroyTarget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.targets[path]
	if !ok {
		return
	}
	delete(m.targets, path)
	if usbDev, ok := busDeviceOf(dev); ok {
		_ = m.bus.Remove(usbDev)
	}
}

// allocPath finds the smallest unused integer suffix for kind, grounded on
// virtualbus.VirtualBus.Add's bus/device id allocation.
func (m *Manager) allocPath(next *int, used map[int]bool, kind string) string {
	for i := 1; ; i++ {
		if !used[i] {
			used[i] = true
			if i > *next {
				*next = i
			}
			return fmt.Sprintf("%s/%s%d", pathPrefix, kind, i)
		}
	}
}
