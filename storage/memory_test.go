package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMapSetGet(t *testing.T) {
	m := NewMemoryMap[Key, string]()
	k := NewLineKey("RUT", "RUT:Line:1", "veh-1")

	require.NoError(t, m.Set(k, "a", 0))

	got, ok, err := m.Get(k)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", got)

	_, ok, err = m.Get(NewKey("RUT", "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryMapExpiry(t *testing.T) {
	m := NewMemoryMap[string, int]()
	require.NoError(t, m.Set("short", 1, 10*time.Millisecond))
	require.NoError(t, m.Set("long", 2, time.Hour))

	time.Sleep(25 * time.Millisecond)

	_, ok, err := m.Get("short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be returned")

	_, ok, err = m.Get("long")
	require.NoError(t, err)
	assert.True(t, ok)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestMemoryMapPruneExpired(t *testing.T) {
	m := NewMemoryMap[string, int]()
	require.NoError(t, m.Set("a", 1, 5*time.Millisecond))
	require.NoError(t, m.Set("b", 2, 5*time.Millisecond))
	require.NoError(t, m.Set("c", 3, time.Hour))

	time.Sleep(15 * time.Millisecond)

	assert.Equal(t, 2, m.PruneExpired())
	keys, err := m.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys)
}

func TestMemoryMapSetAllAndGetAll(t *testing.T) {
	m := NewMemoryMap[string, int]()
	require.NoError(t, m.SetAll(map[string]int{"a": 1, "b": 2, "c": 3}, 0))

	got, err := m.GetAll([]string{"a", "c", "nope"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "c": 3}, got)
}

func TestMemoryMapDelete(t *testing.T) {
	m := NewMemoryMap[string, int]()
	require.NoError(t, m.Set("a", 1, 0))

	removed, err := m.Delete("a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = m.Delete("a")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryMapClear(t *testing.T) {
	m := NewMemoryMap[string, int]()
	require.NoError(t, m.SetAll(map[string]int{"a": 1, "b": 2}, 0))
	require.NoError(t, m.Clear())

	size, err := m.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestKeyCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{"with line", NewLineKey("RUT", "RUT:Line:5", "journey-1")},
		{"without line", NewKey("ATB", "situation-9")},
		{"colons in id", NewKey("SKY", "SKY:VehicleJourney:12:0")},
	}
	codec := KeyCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := codec.Decode(codec.Encode(tt.key))
			require.NoError(t, err)
			assert.Equal(t, tt.key, decoded)
		})
	}
}

func TestKeyPredicates(t *testing.T) {
	k := NewLineKey("RUT", "RUT:Line:1", "x")

	assert.True(t, ByCodespace("RUT")(k))
	assert.False(t, ByCodespace("ATB")(k))
	assert.True(t, ByCodespace("")(k), "empty codespace matches everything")
	assert.True(t, ByLine("RUT:Line:1")(k))
	assert.False(t, ByLine("RUT:Line:2")(k))
	assert.True(t, Any(k))
}
