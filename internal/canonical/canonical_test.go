package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeysRecursively(t *testing.T) {
	out, err := Marshal(map[string]any{
		"b": 2,
		"a": map[string]any{"z": 1, "y": []any{"k", map[string]any{"n": 1, "m": 0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":["k",{"m":0,"n":1}],"z":1},"b":2}`, string(out))
}

func TestMarshalKeepsArrayOrder(t *testing.T) {
	out, err := Marshal([]any{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, `[3,1,2]`, string(out))
}

func TestMarshalPreservesNumberForm(t *testing.T) {
	out, err := Marshal(map[string]any{"price": 0.000001234, "qty": 1000000})
	require.NoError(t, err)
	assert.Contains(t, string(out), "0.000001234")
	assert.Contains(t, string(out), "1000000")
}

func TestHashHexStableAcrossFieldOrder(t *testing.T) {
	h1, err := HashHex(map[string]any{"source": "dexscreener", "price": 1.5})
	require.NoError(t, err)
	h2, err := HashHex(map[string]any{"price": 1.5, "source": "dexscreener"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
