//go:build linux

package source

import (
	"testing"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeHat(t *testing.T) {
	up, down, left, right := DecomposeHat(0, -1)
	assert.True(t, up)
	assert.False(t, down)
	assert.False(t, left)
	assert.False(t, right)

	up, down, left, right = DecomposeHat(1, 0)
	assert.False(t, up)
	assert.False(t, down)
	assert.False(t, left)
	assert.True(t, right)
}

type fakeCodec struct {
	frames [][]byte
	i      int
}

func (f *fakeCodec) FrameSize() int { return 1 }
func (f *fakeCodec) OutputFrameSize() int { return 0 }
func (f *fakeCodec) EncodeOutput(native.OutputEvent) ([]byte, bool) { return nil, false }

func (f *fakeCodec) Decode(frame []byte) map[native.Capability]native.InputValue {
	out := make(map[native.Capability]native.InputValue)
	if frame[0]&0x1 != 0 {
		out[native.NewGamepadButton(native.ButtonSouth)] = native.Bool(true)
	}
	return out
}

func TestRawHIDDiffReleasesDroppedFields(t *testing.T) {
	codec := &fakeCodec{}
	cfg := Config{}
	r := &RawHID{
		base:  newBase("hidraw://test", nil, cfg.withDefaults(DefaultRawHIDPollInterval)),
		codec: codec,
		prev:  make(map[native.Capability]native.InputValue),
	}

	evts := r.diff([]byte{0x1})
	require.Len(t, evts, 1)
	assert.True(t, evts[0].Value.AsBool())

	// Field absent from the next frame is released, not carried over.
	evts = r.diff([]byte{0x0})
	require.Len(t, evts, 1)
	assert.False(t, evts[0].Value.AsBool())
}
