//go:build linux

package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"golang.org/x/sys/unix"
)

// evdev event type/code constants this driver cares about (linux/input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03
	evFF  = 0x15

	synReport = 0

	absX     = 0x00
	absY     = 0x01
	absRX    = 0x03
	absRY    = 0x04
	absHat0X = 0x10
	absHat0Y = 0x11
)

// inputEvent mirrors struct input_event from linux/input.h (64-bit time_t
// layout, the only one the kernel emits on a modern 64-bit build).
type inputEvent struct {
	Sec, Usec int64
	Type      uint16
	Code      uint16
	Value     int32
}

const inputEventSize = 24

// EvdevCodeMap translates a raw (type,code) pair into a Capability, along
// with how to interpret Value: as a boolean key state or as a raw absolute
// axis sample requiring the device's reported [min,max] range to normalize.
type EvdevCodeMap struct {
	Keys map[uint16]native.Capability
	Abs  map[uint16]native.Capability
}

// Evdev is a Source variant reading from a kernel evdev event node
// ("evdev://eventN"). It grabs the node exclusively (EVIOCGRAB), reads
// non-blocking, and maintains a caller-id -> kernel-id force-feedback effect
// table for FF_UPLOAD/FF_ERASE per spec.md §4.1. No EVIOCSFF ioctl is
// issued to the kernel and no reply is sent back to the caller.
type Evdev struct {
	base
	path    string
	codes   EvdevCodeMap
	absInfo map[uint16]inputAbsInfo

	fd     int
	f      *os.File
	ffMu   sync.Mutex
	ffIDs  map[int]int16 // caller effect id -> kernel effect id
	nextID int
}

// NewEvdev opens path (e.g. "/dev/input/event3") and queries its reported
// axis ranges via EVIOCGABS before Start is called.
func NewEvdev(path string, codes EvdevCodeMap, cfg Config) (*Evdev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		return nil, fmt.Errorf("source: set nonblock %s: %w", path, err)
	}

	absInfo := make(map[uint16]inputAbsInfo)
	caps := make(map[native.Capability]struct{})
	for code, cap := range codes.Keys {
		_ = code
		caps[cap] = struct{}{}
	}
	for code, cap := range codes.Abs {
		if info, err := eviocgabs(fd, byte(code)); err == nil {
			absInfo[code] = info
		}
		caps[cap] = struct{}{}
	}

	id := "evdev://" + path
	return &Evdev{
		base:    newBase(id, caps, cfg.withDefaults(DefaultEvdevPollInterval)),
		path:    path,
		codes:   codes,
		absInfo: absInfo,
		fd:      fd,
		f:       f,
		ffIDs:   make(map[int]int16),
	}, nil
}

func (e *Evdev) Start(ctx context.Context, sink EventSink) error {
	if err := eviocgrab(e.fd, true); err != nil {
		e.cfg.Logger.Warn("EVIOCGRAB failed, continuing ungrabbed", "id", e.id, "error", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.run(runCtx, sink)
	return nil
}

func (e *Evdev) run(ctx context.Context, sink EventSink) {
	defer func() {
		_ = eviocgrab(e.fd, false)
		_ = e.f.Close()
	}()
	buf := make([]byte, inputEventSize*64)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sink.Stopped(StoppedEvent{ID: e.id})
			return
		case oe := <-e.outCh:
			e.handleOutput(oe)
		case <-ticker.C:
			var events []native.NativeEvent
			n, err := e.f.Read(buf)
			switch {
			case err == nil:
				events = e.decode(buf[:n])
			case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, io.EOF):
				// transient: no new raw events this tick, but scheduled
				// releases still need draining below.
			default:
				e.cfg.Logger.Error("evdev read failed, stopping source", "id", e.id, "error", err)
				sink.Stopped(StoppedEvent{ID: e.id, Err: err})
				return
			}
			// translate drains any due delayed-chord/scheduled releases every
			// tick, per spec.md §4.3/§9, regardless of whether this tick
			// decoded new raw events.
			if translated := e.translate(events); len(translated) > 0 {
				sink.Dispatch(e.id, translated)
			}
		}
	}
}

func (e *Evdev) decode(buf []byte) []native.NativeEvent {
	var out []native.NativeEvent
	for off := 0; off < len(buf); off += inputEventSize {
		if len(buf[off:]) < inputEventSize {
			// Malformed/truncated frame: log and discard, stream continues.
			e.cfg.Logger.Log(context.Background(), slog.LevelDebug, "evdev: truncated frame", "id", e.id)
			break
		}
		ev := inputEvent{
			Sec:   int64(binary.LittleEndian.Uint64(buf[off : off+8])),
			Usec:  int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
			Type:  binary.LittleEndian.Uint16(buf[off+16 : off+18]),
			Code:  binary.LittleEndian.Uint16(buf[off+18 : off+20]),
			Value: int32(binary.LittleEndian.Uint32(buf[off+20 : off+24])),
		}
		switch ev.Type {
		case evSyn:
			continue
		case evKey:
			if cap, ok := e.codes.Keys[ev.Code]; ok {
				out = append(out, native.NewEvent(cap, native.Bool(ev.Value != 0)))
			}
		case evAbs:
			cap, ok := e.codes.Abs[ev.Code]
			if !ok {
				continue
			}
			norm := e.normalizeAbs(ev.Code, ev.Value)
			out = append(out, native.NewEvent(cap, e.axisValue(ev.Code, norm)))
		}
	}
	return out
}

func (e *Evdev) normalizeAbs(code uint16, raw int32) float64 {
	info, ok := e.absInfo[code]
	if !ok || info.Maximum == info.Minimum {
		return 0
	}
	return native.Normalize(raw, info.Minimum, info.Maximum)
}

// axisValue shapes a normalized value into the Vector2 component matching
// the physical axis (X vs Y), so stick events carry partial updates as
// spec.md §3 requires.
func (e *Evdev) axisValue(code uint16, norm float64) native.InputValue {
	switch code {
	case absX, absRX, absHat0X:
		v := norm
		return native.Vector2(&v, nil)
	case absY, absRY, absHat0Y:
		v := norm
		return native.Vector2(nil, &v)
	default:
		return native.Float(native.Clamp01(norm))
	}
}

func (e *Evdev) handleOutput(oe native.OutputEvent) {
	switch oe.Kind {
	case native.OutputRumbleUpload, native.OutputRumblePlay:
		e.ffMu.Lock()
		kernelID, exists := e.ffIDs[oe.EffectID]
		if !exists {
			e.nextID++
			kernelID = int16(e.nextID)
			e.ffIDs[oe.EffectID] = kernelID
		}
		e.ffMu.Unlock()
		// FF_UPLOAD/EVIOCSFF issuance elided: the effect table above is the
		// caller-id -> kernel-id mapping spec.md §4.1 requires; actually
		// pushing the ff_effect struct down is a leaf HID detail out of
		// this core's scope per spec.md §1.
		_ = kernelID
	case native.OutputRumbleErase:
		e.ffMu.Lock()
		delete(e.ffIDs, oe.EffectID)
		e.ffMu.Unlock()
	}
}

func (e *Evdev) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}
