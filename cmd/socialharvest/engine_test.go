package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialharvest/pkg/config"
	"socialharvest/pkg/platform"
)

// testEngine assembles the full stack against a throwaway database.
func testEngine(t *testing.T) *engine {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "harvest.db")

	eng, err := buildEngine(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestBuildEngineRegistersCollectors(t *testing.T) {
	eng := testEngine(t)

	_, ok := eng.registry.Get(platform.Instagram)
	assert.True(t, ok, "the instagram collector is wired by default")
	assert.Equal(t, []string{platform.Instagram}, eng.registry.Platforms(),
		"configured platforms without a collector stay unregistered")
}

func TestResolveInfluencerRegistersOnce(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	first, err := eng.resolveInfluencer(ctx, platform.Instagram, "nasa")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	again, err := eng.resolveInfluencer(ctx, platform.Instagram, "nasa")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestResolveInfluencerKeepsStoredProfile(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	added, err := eng.store.AddInfluencer(ctx, &platform.Influencer{
		Platform:                 platform.Instagram,
		Username:                 "nasa",
		DisplayName:              "NASA",
		CollectionFrequencyHours: 6,
	})
	require.NoError(t, err)

	resolved, err := eng.resolveInfluencer(ctx, platform.Instagram, "nasa")
	require.NoError(t, err)
	assert.Equal(t, added.ID, resolved.ID)
	assert.Equal(t, "NASA", resolved.DisplayName)
	assert.Equal(t, 6, resolved.CollectionFrequencyHours)
}

func TestCollectProfileSkipsWithinInterval(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	inf, err := eng.resolveInfluencer(ctx, platform.Instagram, "nasa")
	require.NoError(t, err)
	require.NoError(t, eng.store.TouchInfluencerCollected(ctx, inf.ID, time.Now().UTC()))

	res := eng.orch.CollectProfile(ctx, inf.ID, false)
	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.TaskID, "a skipped collection records no task")
}

func TestCollectFailsWithoutCollector(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	inf, err := eng.resolveInfluencer(ctx, "twitter", "jack")
	require.NoError(t, err)

	res := eng.orch.CollectProfile(ctx, inf.ID, true)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "no collector registered")
}
