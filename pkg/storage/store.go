package storage

import (
	"context"

	"github.com/google/uuid"
	da "github.com/lintang-b-s/transitscheduler/pkg/datastructure"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store persists snapshots of the route graph, the route map and the schedule tree.
// The graph is split over a nodes file and an edges file that are only valid as a pair.
type Store struct {
	cfg util.StorageConfig
	log *zap.Logger
}

func NewStore(cfg util.StorageConfig, log *zap.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

func (s *Store) GetConfig() util.StorageConfig {
	return s.cfg
}

// SaveGraph writes the nodes and edges files. Both carry the same freshly generated pair token.
func (s *Store) SaveGraph(ctx context.Context, g *da.RouteGraph) error {
	pair := uuid.New().String()
	nodes := g.Nodes()
	edges := make([]edgeRecord, 0, g.NumberOfEdges())
	for _, e := range g.Edges() {
		edges = append(edges, edgeRecord{From: e.From, To: e.To})
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeSnapshot(s.cfg.NodesPath(), KIND_NODES, pair, nodes)
	})
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeSnapshot(s.cfg.EdgesPath(), KIND_EDGES, pair, edges)
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	s.log.Info("route graph saved", zap.String("nodesFile", s.cfg.NodesPath()),
		zap.String("edgesFile", s.cfg.EdgesPath()), zap.Int("nodes", len(nodes)), zap.Int("edges", len(edges)))
	return nil
}

// LoadGraph reads the nodes and edges files back into a new graph.
// Both files missing is ErrNotFound. One file missing, tokens from different saves or undecodable content
// is ErrSerializationMismatch.
func (s *Store) LoadGraph(ctx context.Context) (*da.RouteGraph, error) {
	nodesPath, edgesPath := s.cfg.NodesPath(), s.cfg.EdgesPath()
	nodesExist, err := fileExists(nodesPath)
	if err != nil {
		return nil, err
	}
	edgesExist, err := fileExists(edgesPath)
	if err != nil {
		return nil, err
	}

	switch {
	case !nodesExist && !edgesExist:
		return nil, util.NewErrorf(util.ErrNotFound, "no route graph saved in %s", s.cfg.Dir)
	case nodesExist != edgesExist:
		return nil, util.NewErrorf(util.ErrSerializationMismatch,
			"route graph files must be loaded together: %s exists=%t, %s exists=%t",
			nodesPath, nodesExist, edgesPath, edgesExist)
	}

	var (
		nodes                []string
		edges                []edgeRecord
		nodesPair, edgesPair string
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		nodesPair, err = readSnapshot(nodesPath, KIND_NODES, &nodes)
		return err
	})
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		edgesPair, err = readSnapshot(edgesPath, KIND_EDGES, &edges)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if nodesPair == "" || nodesPair != edgesPair {
		return nil, util.NewErrorf(util.ErrSerializationMismatch,
			"%s and %s were not saved together", nodesPath, edgesPath)
	}

	g := da.NewRouteGraph()
	if err := g.SetNodes(nodes); err != nil {
		return nil, util.WrapErrorf(err, util.ErrSerializationMismatch, "restore nodes from %s", nodesPath)
	}
	graphEdges := make([]da.Edge, 0, len(edges))
	for _, e := range edges {
		graphEdges = append(graphEdges, da.NewEdge(e.From, e.To))
	}
	if err := g.SetEdges(graphEdges); err != nil {
		return nil, util.WrapErrorf(err, util.ErrSerializationMismatch, "restore edges from %s", edgesPath)
	}

	s.log.Info("route graph loaded", zap.Int("nodes", g.NumberOfNodes()), zap.Int("edges", g.NumberOfEdges()))
	return g, nil
}

func (s *Store) SaveRoutes(ctx context.Context, routes *da.HashMap[int, string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]routeRecord, 0, routes.Len())
	for _, e := range routes.Snapshot() {
		records = append(records, routeRecord{ID: e.Key, Description: e.Value})
	}
	if err := writeSnapshot(s.cfg.RoutesPath(), KIND_ROUTES, "", records); err != nil {
		return err
	}

	s.log.Info("routes saved", zap.String("routesFile", s.cfg.RoutesPath()), zap.Int("routes", len(records)))
	return nil
}

// LoadRoutes restores the saved routes into routes, replacing its content.
func (s *Store) LoadRoutes(ctx context.Context, routes *da.HashMap[int, string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var records []routeRecord
	if _, err := readSnapshot(s.cfg.RoutesPath(), KIND_ROUTES, &records); err != nil {
		return err
	}

	entries := make([]da.HashEntry[int, string], 0, len(records))
	for _, r := range records {
		entries = append(entries, da.NewHashEntry(r.ID, r.Description))
	}
	if err := routes.Restore(entries); err != nil {
		return util.WrapErrorf(err, util.ErrSerializationMismatch, "restore routes from %s", s.cfg.RoutesPath())
	}

	s.log.Info("routes loaded", zap.Int("routes", routes.Len()))
	return nil
}

func (s *Store) SaveSchedules(ctx context.Context, schedules *da.BPlusTree[int]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := schedules.Dump()
	if err := writeSnapshot(s.cfg.SchedulesPath(), KIND_SCHEDULES, "", keys); err != nil {
		return err
	}

	s.log.Info("schedules saved", zap.String("schedulesFile", s.cfg.SchedulesPath()), zap.Int("departures", len(keys)))
	return nil
}

// LoadSchedules restores the saved departure keys into schedules, replacing its content.
func (s *Store) LoadSchedules(ctx context.Context, schedules *da.BPlusTree[int]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys []int
	if _, err := readSnapshot(s.cfg.SchedulesPath(), KIND_SCHEDULES, &keys); err != nil {
		return err
	}
	if err := schedules.Restore(keys); err != nil {
		return util.WrapErrorf(err, util.ErrSerializationMismatch, "restore schedules from %s", s.cfg.SchedulesPath())
	}

	s.log.Info("schedules loaded", zap.Int("departures", schedules.Len()), zap.Int("height", schedules.Height()))
	return nil
}
