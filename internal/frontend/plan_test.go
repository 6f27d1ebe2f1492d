package frontend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWisdom_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.zst")

	hit, err := wisdomHasEntry(path, 4096, true)
	require.NoError(t, err)
	assert.False(t, hit, "a nonexistent wisdom file has no entries")

	require.NoError(t, recordWisdom(path, 4096, true))
	hit, err = wisdomHasEntry(path, 4096, true)
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = wisdomHasEntry(path, 4096, false)
	require.NoError(t, err)
	assert.False(t, hit, "isreal is part of the cache key")
}

func TestWisdom_RecordIsIdempotentAndAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.zst")

	require.NoError(t, recordWisdom(path, 1024, true))
	require.NoError(t, recordWisdom(path, 1024, true))
	require.NoError(t, recordWisdom(path, 2048, false))

	entries, err := wisdomEntries(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, entries[wisdomKey(1024, true)])
	assert.True(t, entries[wisdomKey(2048, false)])
}

func TestBuildPlan_WisdomOnlyFailsWithoutPriorHit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.zst")
	_, err := BuildPlan(1024, true, path, PlanWisdomOnly, 0)
	assert.Error(t, err)
}

func TestBuildPlan_WisdomOnlySucceedsAfterPatientRecordsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.zst")

	_, err := BuildPlan(512, true, path, PlanPatient, 0)
	require.NoError(t, err)

	p, err := BuildPlan(512, true, path, PlanWisdomOnly, 0)
	require.NoError(t, err)
	assert.Equal(t, 512, p.N)
	assert.True(t, p.IsReal)
	assert.NotNil(t, p.Real)
}

func TestBuildPlan_EstimateNeverTouchesWisdomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.zst")
	_, err := BuildPlan(256, true, path, PlanEstimate, 0)
	require.NoError(t, err)

	hit, err := wisdomHasEntry(path, 256, true)
	require.NoError(t, err)
	assert.False(t, hit, "estimate must not write to the wisdom cache")
}
