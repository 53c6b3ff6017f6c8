//go:build linux

package source

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"golang.org/x/sys/unix"
)

// RawReportCodec decodes one fixed-length vendor HID frame into a full set
// of capability samples. Byte-level report layouts are leaf-driver detail
// and deliberately not specified here (spec.md §1); RawHID only needs a
// codec that can turn a frame into "what does every field currently read".
type RawReportCodec interface {
	FrameSize() int
	Decode(frame []byte) map[native.Capability]native.InputValue
	OutputFrameSize() int
	EncodeOutput(native.OutputEvent) ([]byte, bool)
}

// RawHID is a Source variant for vendor-specific fixed-length-frame devices
// ("hidraw://hidrawN"). It maintains the previously decoded report and emits
// one NativeEvent per field that changed since the previous report, per
// spec.md §4.1.
type RawHID struct {
	base
	path  string
	codec RawReportCodec
	f     *os.File
	prev  map[native.Capability]native.InputValue
}

func NewRawHID(path string, codec RawReportCodec, caps map[native.Capability]struct{}, cfg Config) (*RawHID, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		return nil, err
	}
	id := "hidraw://" + path
	return &RawHID{
		base:  newBase(id, caps, cfg.withDefaults(DefaultRawHIDPollInterval)),
		path:  path,
		codec: codec,
		f:     f,
		prev:  make(map[native.Capability]native.InputValue),
	}, nil
}

func (r *RawHID) Start(ctx context.Context, sink EventSink) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.run(runCtx, sink)
	return nil
}

func (r *RawHID) run(ctx context.Context, sink EventSink) {
	defer r.f.Close()
	frame := make([]byte, r.codec.FrameSize())
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sink.Stopped(StoppedEvent{ID: r.id})
			return
		case oe := <-r.outCh:
			r.handleOutput(oe)
		case <-ticker.C:
			var changed []native.NativeEvent
			n, err := r.f.Read(frame)
			switch {
			case err == nil && n != len(frame):
				// Malformed frame (wrong length): log and discard.
				r.cfg.Logger.Debug("rawhid: short frame, discarding", "id", r.id, "got", n, "want", len(frame))
			case err == nil:
				changed = r.diff(frame)
			case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
				// transient: no new raw events this tick, but scheduled
				// releases still need draining below.
			default:
				r.cfg.Logger.Error("rawhid read failed, stopping source", "id", r.id, "error", err)
				sink.Stopped(StoppedEvent{ID: r.id, Err: err})
				return
			}
			// translate drains any due delayed-chord/scheduled releases every
			// tick, per spec.md §4.3/§9, regardless of whether this tick
			// decoded new raw events.
			if translated := r.translate(changed); len(translated) > 0 {
				sink.Dispatch(r.id, translated)
			}
		}
	}
}

func (r *RawHID) diff(frame []byte) []native.NativeEvent {
	decoded := r.codec.Decode(frame)
	var out []native.NativeEvent
	for cap, val := range decoded {
		if prev, ok := r.prev[cap]; !ok || !valuesEqual(prev, val) {
			out = append(out, native.NewEvent(cap, val))
		}
	}
	// Fields present in prev but absent from the new decode (e.g. a hat
	// component whose direction no longer includes it) are released, never
	// carried over, per spec.md §4.1's tie-break rule.
	for cap := range r.prev {
		if _, ok := decoded[cap]; !ok {
			out = append(out, native.NewEvent(cap, native.Bool(false)))
		}
	}
	r.prev = decoded
	return out
}

func valuesEqual(a, b native.InputValue) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case native.ValueBool:
		return a.Bool == b.Bool
	case native.ValueFloat:
		return a.Float == b.Float
	default:
		return false // conservative: Vector2/3/Touch always considered changed
	}
}

func (r *RawHID) handleOutput(oe native.OutputEvent) {
	if frame, ok := r.codec.EncodeOutput(oe); ok {
		_, _ = r.f.Write(frame)
	}
}

func (r *RawHID) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// DecomposeHat splits an 8-way hat switch value (-1, 0, or 1 per axis, as a
// Vector2) into four independent button states, per spec.md §4.1's
// tie-break rule for multi-bit fields.
func DecomposeHat(x, y float64) (up, down, left, right bool) {
	return y < 0, y > 0, x < 0, x > 0
}
