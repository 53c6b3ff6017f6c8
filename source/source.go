// Package source implements the Source device runtime: one goroutine per
// physical input device, decoding hardware frames into native.NativeEvent
// and accepting native.OutputEvent for rumble/LED playback.
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/translator"
)

// Config tunes the polling cadence and queue depths a Device is started
// with. Defaults match spec.md §4.1: 4ms for raw-HID, 8ms evdev fallback.
type Config struct {
	PollInterval    time.Duration
	OutputQueueSize int
	Logger          *slog.Logger
	CapabilityMap   *translator.CapabilityMap // nil: pass-through, no translation
}

const (
	DefaultRawHIDPollInterval = 4 * time.Millisecond
	DefaultEvdevPollInterval  = 8 * time.Millisecond
	DefaultOutputQueueSize    = 32
)

func (c *Config) withDefaults(fallback time.Duration) Config {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = fallback
	}
	if out.OutputQueueSize <= 0 {
		out.OutputQueueSize = DefaultOutputQueueSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// StoppedEvent is delivered to the owning CompositeDevice's inbound channel
// when a Device's task exits, per spec.md §4.1's failure semantics. It is
// the authoritative removal signal; the composite never polls a Device for
// liveness itself.
type StoppedEvent struct {
	ID  string
	Err error // nil on a clean Stop()
}

// EventSink is the composite's inbound channel, as seen by a Device. Passing
// this value type at Start (rather than a pointer to the composite) breaks
// the cyclic reference described in spec.md §9: a Device never names its
// owning CompositeDevice.
type EventSink interface {
	// Dispatch delivers a batch of native events produced by the source
	// identified by id. Never blocks; the composite's inbound channel is
	// bounded and the composite itself enforces backpressure.
	Dispatch(id string, events []native.NativeEvent)
	// Stopped reports that the source's task exited.
	Stopped(ev StoppedEvent)
}

// Device is the polymorphic handle every source variant implements,
// per spec.md §4.1: {start, poll, accept-output, stop, query-capabilities,
// query-id}. The composite never names a concrete device type; it only
// holds a Device.
type Device interface {
	// ID returns the kernel-stable identity string, e.g. "evdev://event3".
	ID() string
	// Capabilities returns the source's runtime capability set, queried
	// once at startup and fixed thereafter.
	Capabilities() map[native.Capability]struct{}
	// Start acquires exclusive access to the underlying kernel resource and
	// begins the device's polling goroutine, delivering events to sink.
	Start(ctx context.Context, sink EventSink) error
	// WriteOutput queues at most N output events (force feedback, LED);
	// when the queue is full the event is dropped and a warning is logged,
	// per spec.md §5's backpressure policy.
	WriteOutput(ev native.OutputEvent)
	// Stop ungrabs, closes, and terminates the device's goroutine.
	Stop()
}

// base provides the shared goroutine lifecycle, output queue, and
// translator wiring every concrete Device variant embeds.
type base struct {
	id     string
	caps   map[native.Capability]struct{}
	cfg    Config
	outCh  chan native.OutputEvent
	cancel context.CancelFunc
	tr     *translator.Translator
}

func newBase(id string, caps map[native.Capability]struct{}, cfg Config) base {
	var tr *translator.Translator
	if cfg.CapabilityMap != nil {
		tr = translator.New(cfg.CapabilityMap)
	}
	return base{
		id:    id,
		caps:  caps,
		cfg:   cfg,
		outCh: make(chan native.OutputEvent, cfg.OutputQueueSize),
		tr:    tr,
	}
}

func (b *base) ID() string { return b.id }

func (b *base) Capabilities() map[native.Capability]struct{} { return b.caps }

func (b *base) WriteOutput(ev native.OutputEvent) {
	select {
	case b.outCh <- ev:
	default:
		b.cfg.Logger.Warn("source output queue full, dropping event", "id", b.id)
	}
}

// translate runs raw-decoded events through the per-source capability map
// (chord/delayed-chord/multi-source), per spec.md §4.3. With no capability
// map configured it is the identity function.
func (b *base) translate(raw []native.NativeEvent) []native.NativeEvent {
	if b.tr == nil {
		return raw
	}
	out := make([]native.NativeEvent, 0, len(raw))
	for _, ev := range raw {
		out = append(out, b.tr.Feed(ev)...)
	}
	out = append(out, b.tr.Poll()...)
	return out
}
