package scheduler

import (
	"context"
	"os"
	"testing"

	"github.com/lintang-b-s/transitscheduler/pkg/storage"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	cfg       *util.Config
	store     *storage.Store
	planner   *RoutePlanner
	timetable *Timetable
}

func newFixture(t *testing.T, dataDir string) *fixture {
	t.Helper()
	cfg, err := util.ReadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Storage.Dir = dataDir

	log := zap.NewNop()
	store := storage.NewStore(cfg.Storage, log)
	planner, err := NewRoutePlanner(store, cfg.Planner.CacheSize, log)
	require.NoError(t, err)
	timetable, err := NewTimetable(cfg, store, planner, log)
	require.NoError(t, err)
	return &fixture{cfg: cfg, store: store, planner: planner, timetable: timetable}
}

func TestSuggestedAndAlternativeRoutes(t *testing.T) {
	f := newFixture(t, t.TempDir())
	rp := f.planner

	for _, s := range []string{"A", "B", "C", "D"} {
		_, err := rp.AddStop(s)
		require.NoError(t, err)
	}
	require.NoError(t, rp.Connect("A", "C"))
	require.NoError(t, rp.Connect("A", "B"))
	require.NoError(t, rp.Connect("C", "D"))

	bfs, err := rp.SuggestedRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B", "D"}, bfs)

	dfs, err := rp.AlternativeRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D", "B"}, dfs)

	_, err = rp.SuggestedRoutes("Z")
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = rp.AlternativeRoutes("Z")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestTraversalCacheInvalidation(t *testing.T) {
	f := newFixture(t, t.TempDir())
	rp := f.planner

	_, err := rp.AddStop("A")
	require.NoError(t, err)
	order, err := rp.SuggestedRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, order)

	order[0] = "mutated by caller"
	order, err = rp.SuggestedRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, order)

	require.NoError(t, rp.AddConnectedStop("A", "B"))
	order, err = rp.SuggestedRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)

	added, err := rp.AddStop("B")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddConnectedStop(t *testing.T) {
	f := newFixture(t, t.TempDir())
	rp := f.planner

	_, err := rp.AddStop("Central")
	require.NoError(t, err)
	require.NoError(t, rp.AddConnectedStop("Central", "Harbour"))
	assert.ErrorIs(t, rp.AddConnectedStop("", "Airport"), util.ErrInvalidArgument)
	assert.ErrorIs(t, rp.AddConnectedStop("Central", ""), util.ErrInvalidArgument)

	assert.Equal(t, []string{"Central", "Harbour"}, rp.Stops())
	assert.Len(t, rp.Connections(), 1)

	connected, err := rp.IsConnected("Central", "Harbour")
	require.NoError(t, err)
	assert.True(t, connected)
	connected, err = rp.IsConnected("Harbour", "Central")
	require.NoError(t, err)
	assert.False(t, connected)
	_, err = rp.IsConnected("Nowhere", "Central")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestNewRoutePlannerInvalidCacheSize(t *testing.T) {
	_, err := NewRoutePlanner(nil, 0, zap.NewNop())
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestPlannerSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f := newFixture(t, dir)
	require.NoError(t, f.planner.Load(ctx))
	assert.Empty(t, f.planner.Stops(), "nothing saved yet, start fresh")

	_, err := f.planner.AddStop("A")
	require.NoError(t, err)
	require.NoError(t, f.planner.AddConnectedStop("A", "B"))
	require.NoError(t, f.planner.Save(ctx))

	reloaded := newFixture(t, dir)
	require.NoError(t, reloaded.planner.Load(ctx))
	order, err := reloaded.planner.SuggestedRoutes("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestPlannerLoadMismatchedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f := newFixture(t, dir)
	_, err := f.planner.AddStop("A")
	require.NoError(t, err)
	require.NoError(t, f.planner.Save(ctx))
	require.NoError(t, os.Remove(f.cfg.Storage.EdgesPath()))

	reloaded := newFixture(t, dir)
	_, err = reloaded.planner.AddStop("Leftover")
	require.NoError(t, err)

	err = reloaded.planner.Load(ctx)
	assert.ErrorIs(t, err, util.ErrSerializationMismatch)
	assert.Empty(t, reloaded.planner.Stops())
}

func TestTimetableRoutes(t *testing.T) {
	f := newFixture(t, t.TempDir())
	tt := f.timetable

	assert.True(t, tt.AddRoute(101, "Route 101"))
	assert.False(t, tt.AddRoute(101, "New Route"))

	desc, ok := tt.SearchRoute(101)
	require.True(t, ok)
	assert.Equal(t, "Route 101", desc)

	_, ok = tt.SearchRoute(999)
	assert.False(t, ok)
}

func TestTimetableDepartures(t *testing.T) {
	f := newFixture(t, t.TempDir())
	tt := f.timetable

	for _, d := range []int{930, 615, 1200, 745, 615, 2245, 1830} {
		tt.AddDepartureTime(d)
	}

	assert.Equal(t, []int{615, 745, 930, 1200, 1830, 2245}, tt.DepartureTimes())
	assert.Equal(t, []int{745, 930, 1200}, tt.DeparturesBetween(700, 1200))
	assert.Empty(t, tt.DeparturesBetween(0, 600))
	assert.True(t, tt.HasDeparture(1830))
	assert.False(t, tt.HasDeparture(1831))
}

func TestTimetableCheckConnectivity(t *testing.T) {
	f := newFixture(t, t.TempDir())

	_, err := f.planner.AddStop("A")
	require.NoError(t, err)
	require.NoError(t, f.planner.AddConnectedStop("A", "B"))

	connected, err := f.timetable.CheckConnectivity("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, connected)

	_, err = f.timetable.CheckConnectivity("missing")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestTimetableSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f := newFixture(t, dir)
	require.NoError(t, f.timetable.Load(ctx))
	assert.Equal(t, 0, f.timetable.NumberOfRoutes())

	f.timetable.AddRoute(101, "Route 101")
	f.timetable.AddDepartureTime(101)
	f.timetable.AddDepartureTime(102)
	require.NoError(t, f.timetable.Save(ctx))

	reloaded := newFixture(t, dir)
	require.NoError(t, reloaded.timetable.Load(ctx))

	desc, ok := reloaded.timetable.SearchRoute(101)
	require.True(t, ok)
	assert.Equal(t, "Route 101", desc)
	assert.True(t, reloaded.timetable.HasDeparture(101))
	assert.True(t, reloaded.timetable.HasDeparture(102))
	assert.Equal(t, []int{101, 102}, reloaded.timetable.DepartureTimes())
}

func TestTimetableLoadCorruptSchedules(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f := newFixture(t, dir)
	require.NoError(t, os.WriteFile(f.cfg.Storage.SchedulesPath(), []byte("garbage"), 0o644))

	err := f.timetable.Load(ctx)
	assert.ErrorIs(t, err, util.ErrSerializationMismatch)
}

func TestTimetableFailedLoadLeavesEmptyTimetable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	saved := newFixture(t, dir)
	saved.timetable.AddRoute(101, "Route 101")
	saved.timetable.AddDepartureTime(930)
	require.NoError(t, saved.timetable.Save(ctx))
	require.NoError(t, os.WriteFile(saved.cfg.Storage.SchedulesPath(), []byte("garbage"), 0o644))

	for i := 0; i < 50; i++ {
		f := newFixture(t, dir)
		f.timetable.AddRoute(7, "in memory before load")
		f.timetable.AddDepartureTime(1200)

		err := f.timetable.Load(ctx)
		require.ErrorIs(t, err, util.ErrSerializationMismatch)

		_, ok := f.timetable.SearchRoute(101)
		require.False(t, ok, "routes must not be partially restored")
		_, ok = f.timetable.SearchRoute(7)
		require.False(t, ok)
		require.Equal(t, 0, f.timetable.NumberOfRoutes())
		require.Empty(t, f.timetable.DepartureTimes())

		require.True(t, f.timetable.AddRoute(101, "fresh"))
	}
}
