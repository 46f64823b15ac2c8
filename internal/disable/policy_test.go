package disable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/db"
	"github.com/udisondev/vmapd/internal/disable"
	"github.com/udisondev/vmapd/internal/testutil"
	"github.com/udisondev/vmapd/internal/vmap"
)

type fakeSource struct {
	rows []db.Disable
	err  error
	got  int16
}

func (f *fakeSource) LoadBySource(_ context.Context, sourceType int16) ([]db.Disable, error) {
	f.got = sourceType
	return f.rows, f.err
}

func TestPolicyReload(t *testing.T) {
	p := disable.New(map[uint32]uint32{4: 0x2})
	assert.Equal(t, uint32(0x2), p.LiquidFlags(4))
	assert.Zero(t, p.LiquidFlags(5))
	assert.False(t, p.IsVMAPDisabledFor(1, vmap.DisableAll))

	src := &fakeSource{rows: []db.Disable{
		{SourceType: db.SourceVMAP, Entry: 1, Flags: uint32(vmap.DisableLOS | vmap.DisableHeight)},
		{SourceType: db.SourceVMAP, Entry: 2, Flags: 0x100},
		{SourceType: db.SourceVMAP, Entry: 3, Flags: 0x108},
	}}
	require.NoError(t, p.Reload(context.Background(), src))
	assert.Equal(t, int16(db.SourceVMAP), src.got)
	assert.Equal(t, 2, p.Len(), "rows without known flags are dropped")

	assert.True(t, p.IsVMAPDisabledFor(1, vmap.DisableLOS))
	assert.True(t, p.IsVMAPDisabledFor(1, vmap.DisableHeight))
	assert.False(t, p.IsVMAPDisabledFor(1, vmap.DisableAreaFlag))
	assert.False(t, p.IsVMAPDisabledFor(2, vmap.DisableAll))
	assert.True(t, p.IsVMAPDisabledFor(3, vmap.DisableLiquidStatus))

	// a failed reload keeps the current table
	src.err = errors.New("boom")
	require.Error(t, p.Reload(context.Background(), src))
	assert.True(t, p.IsVMAPDisabledFor(1, vmap.DisableLOS))

	p.Set(1, 0)
	p.Set(9, vmap.DisableAreaFlag)
	assert.False(t, p.IsVMAPDisabledFor(1, vmap.DisableLOS))
	assert.True(t, p.IsVMAPDisabledFor(9, vmap.DisableAreaFlag))
}

func TestPolicyDrivesManager(t *testing.T) {
	dir := testutil.VMapDir(t)
	p := disable.New(nil)
	m := vmap.NewManager(vmap.WithPolicy(p))
	require.Equal(t, vmap.LoadSuccess, m.LoadMap(dir, testutil.FixtureMapID, testutil.FixtureTileX, testutil.FixtureTileY))

	from, to := mgl32.Vec3{90, 100, 5}, mgl32.Vec3{110, 100, 5}
	assert.False(t, m.IsInLineOfSight(testutil.FixtureMapID, from, to, vmap.IgnoreNothing))

	p.Set(testutil.FixtureMapID, vmap.DisableLOS)
	assert.True(t, m.IsInLineOfSight(testutil.FixtureMapID, from, to, vmap.IgnoreNothing))
}

func TestPolicyFromDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a postgres container")
	}
	pool := testutil.SetupTestDB(t)
	repo := db.NewDisableRepository(pool)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, db.Disable{SourceType: db.SourceVMAP, Entry: 0, Flags: uint32(vmap.DisableHeight)}))

	p := disable.New(nil)
	require.NoError(t, p.Reload(ctx, repo))
	assert.True(t, p.IsVMAPDisabledFor(0, vmap.DisableHeight))
	assert.False(t, p.IsVMAPDisabledFor(0, vmap.DisableLOS))
}
