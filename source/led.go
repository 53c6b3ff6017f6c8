//go:build linux

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
)

// LED is an output-only Source variant backed by a sysfs LED class device
// (spec.md §6): brightness, max_brightness, multi_intensity, multi_index.
// It has no poll loop of its own — it's a pure sink for OutputEvent writes —
// but still satisfies the Device interface so the composite can address it
// uniformly alongside evdev/rawhid/serial sources.
type LED struct {
	base
	sysfsPath     string
	colorOrder    []byte // index order for multi_intensity, e.g. {R,G,B}
	maxBrightness uint8
}

func NewLED(sysfsPath string, colorOrder []byte, cfg Config) (*LED, error) {
	maxRaw, err := os.ReadFile(filepath.Join(sysfsPath, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("source: read max_brightness: %w", err)
	}
	maxVal, err := strconv.Atoi(strings.TrimSpace(string(maxRaw)))
	if err != nil {
		return nil, fmt.Errorf("source: parse max_brightness: %w", err)
	}
	id := "led://" + sysfsPath
	return &LED{
		base:          newBase(id, map[native.Capability]struct{}{}, cfg.withDefaults(DefaultRawHIDPollInterval)),
		sysfsPath:     sysfsPath,
		colorOrder:    colorOrder,
		maxBrightness: uint8(maxVal),
	}, nil
}

func (l *LED) Start(ctx context.Context, sink EventSink) error {
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go func() {
		<-runCtx.Done()
		sink.Stopped(StoppedEvent{ID: l.id})
	}()
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case oe := <-l.outCh:
				l.handleOutput(oe)
			}
		}
	}()
	return nil
}

func (l *LED) handleOutput(oe native.OutputEvent) {
	if oe.Kind != native.OutputLED {
		return
	}
	scale := func(v uint8) int {
		return int(uint32(v) * uint32(l.maxBrightness) / 255)
	}
	values := map[byte]int{'R': scale(oe.LED.R), 'G': scale(oe.LED.G), 'B': scale(oe.LED.B)}
	parts := make([]string, 0, len(l.colorOrder))
	for _, c := range l.colorOrder {
		parts = append(parts, strconv.Itoa(values[c]))
	}
	line := strings.Join(parts, " ")

	if err := os.WriteFile(filepath.Join(l.sysfsPath, "multi_index"), []byte(strconv.Itoa(int(oe.LED.Index))), 0o644); err != nil {
		l.cfg.Logger.Debug("led: write multi_index failed", "id", l.id, "error", err)
	}
	if err := os.WriteFile(filepath.Join(l.sysfsPath, "multi_intensity"), []byte(line), 0o644); err != nil {
		l.cfg.Logger.Debug("led: write multi_intensity failed", "id", l.id, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(l.sysfsPath, "brightness"), []byte(strconv.Itoa(int(l.maxBrightness))), 0o644); err != nil {
		l.cfg.Logger.Debug("led: write brightness failed", "id", l.id, "error", err)
	}
}

func (l *LED) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}
