//go:build linux

package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"golang.org/x/sys/unix"
)

// SerialCodec decodes one complete framed packet (already delimited by the
// driver's framing rule) and reports whether a "takeover" command must be
// sent to re-capture a device that spontaneously reverted to front-end
// mode, detected by an unexpected frame length.
type SerialCodec interface {
	// TryFrame attempts to extract one frame from the head of buf. Returns
	// the frame, the number of bytes consumed, and ok=false if buf doesn't
	// yet hold a complete frame.
	TryFrame(buf []byte) (frame []byte, consumed int, ok bool)
	Decode(frame []byte) []native.NativeEvent
	// TakeoverCommand is sent to re-capture the device after an unexpected
	// frame length is observed following a 2ms idle period, per spec.md §6.
	TakeoverCommand() []byte
}

// Serial is a Source variant for 115200 8E1 framed-packet TTY devices
// (spec.md §6), such as a detachable controller half that can flip back to
// "front-end" (non-gamepad) mode spontaneously.
type Serial struct {
	base
	path  string
	codec SerialCodec
	f     *os.File

	buf        bytes.Buffer
	lastByteAt time.Time
}

const serialIdleThreshold = 2 * time.Millisecond

func NewSerial(path string, codec SerialCodec, caps map[native.Capability]struct{}, cfg Config) (*Serial, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := configureSerial(int(f.Fd())); err != nil {
		f.Close()
		return nil, err
	}
	id := "serial://" + path
	return &Serial{
		base:  newBase(id, caps, cfg.withDefaults(DefaultRawHIDPollInterval)),
		path:  path,
		codec: codec,
		f:     f,
	}, nil
}

// configureSerial sets 115200 8E1 (8 data bits, even parity, 1 stop bit) via
// termios, the shape spec.md §6 requires for this source family.
func configureSerial(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Cflag &^= unix.CSIZE | unix.PARODD
	t.Cflag |= unix.CS8 | unix.PARENB | unix.CLOCAL | unix.CREAD
	t.Cflag &^= unix.CSTOPB
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Lflag = 0
	t.Oflag = 0
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return err
	}
	return unix.IoctlSetTermiosSpeed(fd, unix.TCSETS, unix.B115200)
}

func (s *Serial) Start(ctx context.Context, sink EventSink) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx, sink)
	return nil
}

func (s *Serial) run(ctx context.Context, sink EventSink) {
	defer s.f.Close()
	chunk := make([]byte, 256)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sink.Stopped(StoppedEvent{ID: s.id})
			return
		case <-ticker.C:
			var events []native.NativeEvent
			n, err := s.f.Read(chunk)
			switch {
			case err == nil:
				if n > 0 {
					s.buf.Write(chunk[:n])
					s.lastByteAt = time.Now()
				}
				events = s.drainFrames()
			case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK):
				s.checkIdleTakeover()
			default:
				s.cfg.Logger.Error("serial read failed, stopping source", "id", s.id, "error", err)
				sink.Stopped(StoppedEvent{ID: s.id, Err: err})
				return
			}
			// translate drains any due delayed-chord/scheduled releases every
			// tick, per spec.md §4.3/§9, regardless of whether this tick
			// decoded new raw events.
			if translated := s.translate(events); len(translated) > 0 {
				sink.Dispatch(s.id, translated)
			}
		}
	}
}

func (s *Serial) drainFrames() []native.NativeEvent {
	var out []native.NativeEvent
	for {
		frame, consumed, ok := s.codec.TryFrame(s.buf.Bytes())
		if !ok {
			if consumed > 0 {
				// Unexpected frame length observed: discard the bad prefix
				// and let checkIdleTakeover decide whether to re-capture.
				s.buf.Next(consumed)
				continue
			}
			return out
		}
		s.buf.Next(consumed)
		out = append(out, s.codec.Decode(frame)...)
	}
}

// checkIdleTakeover re-sends the device-specific takeover command after a
// 2ms idle period following an unexpected-length frame, per spec.md §6.
func (s *Serial) checkIdleTakeover() {
	if s.buf.Len() == 0 {
		return
	}
	if time.Since(s.lastByteAt) < serialIdleThreshold {
		return
	}
	cmd := s.codec.TakeoverCommand()
	if len(cmd) == 0 {
		return
	}
	s.buf.Reset()
	_, _ = s.f.Write(cmd)
}

func (s *Serial) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}
