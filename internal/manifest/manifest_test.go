package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trust-plane/internal/mirror"
)

func sampleRange() TimeRange {
	return TimeRange{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	r1 := map[string]any{"source": "dexscreener", "mint": "abc", "priceUsd": 1.2}
	r2 := map[string]any{"source": "geckoterminal", "mint": "abc", "priceUsd": 1.21}
	r3 := map[string]any{"mint": "def", "priceUsd": 0.004}

	a, err := Build(BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(), Records: []any{r1, r2, r3}})
	require.NoError(t, err)
	b, err := Build(BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(), Records: []any{r3, r1, r2}})
	require.NoError(t, err)

	assert.Equal(t, a.SHA256, b.SHA256)
	assert.Equal(t, a.DatasetID, b.DatasetID)
}

func TestBuildSourceMix(t *testing.T) {
	records := []any{
		map[string]any{"source": "dexscreener", "v": 1},
		map[string]any{"source": "dexscreener", "v": 2},
		map[string]any{"provenance": map[string]any{"source": "geckoterminal"}, "v": 3},
		map[string]any{"v": 4},
		"opaque",
	}
	m, err := Build(BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(), Records: records})
	require.NoError(t, err)

	assert.Equal(t, 5, m.RecordCount)
	assert.Equal(t, map[string]int{"dexscreener": 2, "geckoterminal": 1, "unknown": 2}, m.SourceMix)
}

func TestBuildDifferentDataDifferentHash(t *testing.T) {
	base := BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(),
		Records: []any{map[string]any{"v": 1}}}
	a, err := Build(base)
	require.NoError(t, err)

	changed := base
	changed.Records = []any{map[string]any{"v": 2}}
	b, err := Build(changed)
	require.NoError(t, err)

	assert.NotEqual(t, a.SHA256, b.SHA256)

	otherSurface := base
	otherSurface.Surface = "bonk-usdc"
	c, err := Build(otherSurface)
	require.NoError(t, err)
	assert.NotEqual(t, a.SHA256, c.SHA256)
}

func TestBuildValidation(t *testing.T) {
	_, err := Build(BuildInput{Surface: "sol-usdc"})
	assert.Error(t, err)
	_, err = Build(BuildInput{Family: "prices"})
	assert.Error(t, err)
}

func TestBuildDatasetIDIsHashPrefix(t *testing.T) {
	m, err := Build(BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(), Records: nil})
	require.NoError(t, err)
	assert.Len(t, m.DatasetID, 16)
	assert.Equal(t, m.SHA256[:16], m.DatasetID)
	assert.Equal(t, SchemaVersion, m.SchemaVersion)
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	m, err := Build(BuildInput{Family: "prices", Surface: "sol-usdc", TimeRange: sampleRange(),
		Records: []any{map[string]any{"source": "dexscreener", "v": 1}}})
	require.NoError(t, err)

	store := NewStore(t.TempDir(), mirror.NewFanout(100*time.Millisecond, zerolog.Nop()), nil, nil, zerolog.Nop())
	require.NoError(t, store.Persist(context.Background(), m))

	loaded, err := store.Load(m.Family, m.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, m.SHA256, loaded.SHA256)
	assert.Equal(t, m.SourceMix, loaded.SourceMix)
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil, nil, nil, zerolog.Nop())
	_, err := store.Load("prices", "deadbeefdeadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}
