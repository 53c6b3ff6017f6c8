package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: test-profile
mappings:
  - kind: chord
    members: ["Keyboard:F1", "Keyboard:F2"]
    target: "Gamepad:Button:Guide"
rules:
  - source: "Gamepad:Button:DPadRight"
    target: "Gamepad:Axis:LeftStick"
    direction: "X+"
`

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cm, pt, name, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-profile", name)
	assert.NotNil(t, cm)
	require.NotNil(t, pt)
}

func TestLoadRejectsUnknownCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nrules:\n  - source: \"Gamepad:Button:Bogus\"\n    target: \"Gamepad:Button:South\"\n"), 0o644))

	_, _, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, _, _, err := Load(path)
	assert.Error(t, err)
}
