package verify

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modcheck/internal/fingerprint"
	"modcheck/internal/integrity"
)

func TestInspect_DoesNotMutate(t *testing.T) {
	f := newFixture(t, map[string]string{overlayMarker: legacyDigest})
	f.run()

	before, err := os.ReadFile(f.opts.CachePath)
	require.NoError(t, err)

	st := Inspect(context.Background(), f.opts)
	assert.True(t, st.CacheLoaded)
	assert.True(t, st.FingerprintMatches())
	require.Len(t, st.Conditions, 3)

	var legacy ConditionState
	for _, c := range st.Conditions {
		if c.Result.Key() == integrity.KeyLegacyUpscale {
			legacy = c
		}
	}
	assert.True(t, legacy.Result.Detected())
	assert.True(t, legacy.HasEntry)
	assert.Equal(t, uint32(1), legacy.Entry.ShownCount)
	assert.Equal(t, 2, legacy.Decision.Remaining)

	after, err := os.ReadFile(f.opts.CachePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.presenter.notices, 1)
}

func TestInspect_FingerprintMismatch(t *testing.T) {
	f := newFixture(t, map[string]string{overlayMarker: legacyDigest})
	f.run()

	f.opts.Provider = fingerprint.Static("installdate:1800000000")
	st := Inspect(context.Background(), f.opts)
	assert.False(t, st.FingerprintMatches())
	for _, c := range st.Conditions {
		assert.False(t, c.HasEntry)
		if c.Result.Key() == integrity.KeyLegacyUpscale {
			assert.Equal(t, 3, c.Decision.Remaining)
		}
	}
}

func TestInspect_NoCache(t *testing.T) {
	f := newFixture(t, nil)

	st := Inspect(context.Background(), f.opts)
	assert.False(t, st.CacheLoaded)
	assert.NoError(t, st.CacheError)
	assert.Empty(t, st.StoredFingerprint)

	_, err := os.Stat(f.opts.CachePath)
	assert.True(t, os.IsNotExist(err), "inspect must not create the cache")
}
