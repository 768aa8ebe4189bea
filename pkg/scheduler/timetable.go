package scheduler

import (
	"context"
	"errors"
	"slices"

	da "github.com/lintang-b-s/transitscheduler/pkg/datastructure"
	"github.com/lintang-b-s/transitscheduler/pkg/storage"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Timetable holds bus and train routes by id and the departure time index.
type Timetable struct {
	routes    *da.HashMap[int, string]
	schedules *da.BPlusTree[int]
	planner   *RoutePlanner
	store     *storage.Store
	cfg       *util.Config
	log       *zap.Logger
}

func NewTimetable(cfg *util.Config, store *storage.Store, planner *RoutePlanner, log *zap.Logger) (*Timetable, error) {
	routes, schedules, err := newTimetableStructures(cfg)
	if err != nil {
		return nil, err
	}
	return &Timetable{
		routes:    routes,
		schedules: schedules,
		planner:   planner,
		store:     store,
		cfg:       cfg,
		log:       log,
	}, nil
}

func newTimetableStructures(cfg *util.Config) (*da.HashMap[int, string], *da.BPlusTree[int], error) {
	routes, err := da.NewHashMapWithCapacity[int, string](cfg.Routes.Capacity, cfg.Routes.LoadFactor)
	if err != nil {
		return nil, nil, err
	}
	schedules, err := da.NewBPlusTree[int](cfg.Schedule.Fanout)
	if err != nil {
		return nil, nil, err
	}
	return routes, schedules, nil
}

func (tt *Timetable) NumberOfRoutes() int {
	return tt.routes.Len()
}

// AddRoute registers a route. An id that is already registered keeps its original description.
func (tt *Timetable) AddRoute(id int, description string) bool {
	added := tt.routes.Put(id, description)
	if !added {
		tt.log.Debug("route already exists, keeping original", zap.Int("routeId", id))
	}
	return added
}

func (tt *Timetable) SearchRoute(id int) (string, bool) {
	return tt.routes.Get(id)
}

func (tt *Timetable) AddDepartureTime(departure int) bool {
	return tt.schedules.Insert(departure)
}

func (tt *Timetable) HasDeparture(departure int) bool {
	return tt.schedules.Contains(departure)
}

// DepartureTimes returns every departure in ascending order.
func (tt *Timetable) DepartureTimes() []int {
	return tt.schedules.Dump()
}

// DeparturesBetween returns the departures in [from, to] in ascending order.
func (tt *Timetable) DeparturesBetween(from, to int) []int {
	return slices.Collect(tt.schedules.Range(from, to))
}

// CheckConnectivity lists the stops connected to start, depth first.
func (tt *Timetable) CheckConnectivity(start string) ([]string, error) {
	return tt.planner.AlternativeRoutes(start)
}

// Load replaces routes and schedules with the saved ones. A structure without a saved file starts empty.
// If either file fails to load, both structures are reset to empty and the error is returned.
func (tt *Timetable) Load(ctx context.Context) error {
	routes, schedules, err := newTimetableStructures(tt.cfg)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := tt.store.LoadRoutes(ctx, routes)
		if errors.Is(err, util.ErrNotFound) {
			tt.log.Info("no existing routes found, starting fresh")
			return nil
		}
		return err
	})
	eg.Go(func() error {
		err := tt.store.LoadSchedules(ctx, schedules)
		if errors.Is(err, util.ErrNotFound) {
			tt.log.Info("no existing schedules found, starting fresh")
			return nil
		}
		return err
	})
	if err := eg.Wait(); err != nil {
		tt.log.Error("error loading timetable", zap.Error(err))
		tt.routes, tt.schedules, _ = newTimetableStructures(tt.cfg)
		return err
	}
	tt.routes, tt.schedules = routes, schedules
	return nil
}

func (tt *Timetable) Save(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return tt.store.SaveRoutes(ctx, tt.routes)
	})
	eg.Go(func() error {
		return tt.store.SaveSchedules(ctx, tt.schedules)
	})
	if err := eg.Wait(); err != nil {
		tt.log.Error("error saving timetable", zap.Error(err))
		return err
	}
	return nil
}
