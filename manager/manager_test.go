package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTargetAllocatesDistinctPaths(t *testing.T) {
	m := New(nil)

	p1, dev1, err := m.CreateTarget("xbox360")
	require.NoError(t, err)
	p2, dev2, err := m.CreateTarget("xbox360")
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.NotNil(t, dev1)
	assert.NotNil(t, dev2)
	assert.Equal(t, "xbox360", dev1.Type())
}

func TestCreateTargetSteamDeck(t *testing.T) {
	m := New(nil)

	path, dev, err := m.CreateTarget("deck")
	require.NoError(t, err)
	assert.Equal(t, "deck", dev.Type())
	assert.NotEmpty(t, dev.Capabilities())

	_, ok := m.TargetByPath(path)
	assert.True(t, ok)
}

func TestCreateTargetUnknownTypeErrors(t *testing.T) {
	m := New(nil)
	_, _, err := m.CreateTarget("not-a-real-type")
	assert.Error(t, err)
}

func TestCreateTargetDBusAndUnified(t *testing.T) {
	m := New(nil)

	_, dbusDev, err := m.CreateTarget("dbus")
	require.NoError(t, err)
	assert.Equal(t, "dbus", dbusDev.Type())

	_, unifiedDev, err := m.CreateTarget("unified")
	require.NoError(t, err)
	assert.Equal(t, "unified-ws", unifiedDev.Type())
}

func TestDestroyTargetRemovesFromRegistry(t *testing.T) {
	m := New(nil)
	path, _, err := m.CreateTarget("keyboard")
	require.NoError(t, err)

	_, ok := m.TargetByPath(path)
	require.True(t, ok)

	m.DestroyTarget(path)
	_, ok = m.TargetByPath(path)
	assert.False(t, ok)
}

func TestCreateCompositeIsReapedAfterStop(t *testing.T) {
	m := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cd := m.CreateComposite(ctx, "test")
	require.Len(t, m.Composites(), 1)

	cd.Stop()

	require.Eventually(t, func() bool {
		return len(m.Composites()) == 0
	}, time.Second, time.Millisecond)
}
