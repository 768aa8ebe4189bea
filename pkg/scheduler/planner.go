package scheduler

import (
	"context"
	"errors"
	"iter"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/transitscheduler/pkg/datastructure"
	"github.com/lintang-b-s/transitscheduler/pkg/storage"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"go.uber.org/zap"
)

type traversalKind uint8

const (
	BFS_TRAVERSAL traversalKind = iota
	DFS_TRAVERSAL
)

type traversalKey struct {
	kind  traversalKind
	start string
}

// RoutePlanner owns the route network and answers suggested/alternative route queries on it.
type RoutePlanner struct {
	graph *da.RouteGraph
	store *storage.Store
	cache *lru.Cache[traversalKey, []string]
	log   *zap.Logger
}

func NewRoutePlanner(store *storage.Store, cacheSize int, log *zap.Logger) (*RoutePlanner, error) {
	cache, err := lru.New[traversalKey, []string](cacheSize)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInvalidArgument, "traversal cache size %d", cacheSize)
	}
	return &RoutePlanner{
		graph: da.NewRouteGraph(),
		store: store,
		cache: cache,
		log:   log,
	}, nil
}

// AddStop adds a stop to the network. It returns false if the stop already exists.
func (rp *RoutePlanner) AddStop(label string) (bool, error) {
	added, err := rp.graph.AddNode(label)
	if err != nil {
		return false, err
	}
	if added {
		rp.cache.Purge()
		rp.log.Debug("stop added", zap.String("stop", label))
	}
	return added, nil
}

// Connect adds a directed connection from -> to.
func (rp *RoutePlanner) Connect(from, to string) error {
	if err := rp.graph.AddEdge(from, to); err != nil {
		return err
	}
	rp.cache.Purge()
	rp.log.Debug("connection added", zap.String("from", from), zap.String("to", to))
	return nil
}

// AddConnectedStop adds the ending stop to and connects from to it.
func (rp *RoutePlanner) AddConnectedStop(from, to string) error {
	if from == "" {
		return util.NewErrorf(util.ErrInvalidArgument, "starting point must not be empty")
	}
	if _, err := rp.AddStop(to); err != nil {
		return err
	}
	return rp.Connect(from, to)
}

// SuggestedRoutes returns the stops reachable from start in breadth-first order.
func (rp *RoutePlanner) SuggestedRoutes(start string) ([]string, error) {
	return rp.traverse(BFS_TRAVERSAL, start)
}

// AlternativeRoutes returns the stops reachable from start in depth-first order.
func (rp *RoutePlanner) AlternativeRoutes(start string) ([]string, error) {
	return rp.traverse(DFS_TRAVERSAL, start)
}

func (rp *RoutePlanner) traverse(kind traversalKind, start string) ([]string, error) {
	key := traversalKey{kind: kind, start: start}
	if order, ok := rp.cache.Get(key); ok {
		return slices.Clone(order), nil
	}

	var (
		seq iter.Seq[string]
		ok  bool
	)
	switch kind {
	case BFS_TRAVERSAL:
		seq, ok = rp.graph.BFS(start)
	default:
		seq, ok = rp.graph.DFS(start)
	}
	if !ok {
		return nil, util.NewErrorf(util.ErrNotFound, "starting point %q not found", start)
	}

	order := slices.Collect(seq)
	rp.cache.Add(key, order)
	return slices.Clone(order), nil
}

// IsConnected reports whether to is reachable from from.
func (rp *RoutePlanner) IsConnected(from, to string) (bool, error) {
	if !rp.graph.HasNode(from) {
		return false, util.NewErrorf(util.ErrNotFound, "starting point %q not found", from)
	}
	return rp.graph.Reachable(from, to), nil
}

func (rp *RoutePlanner) Stops() []string {
	return rp.graph.Nodes()
}

func (rp *RoutePlanner) Connections() []da.Edge {
	return rp.graph.Edges()
}

// Load replaces the network with the saved one. When nothing was saved the planner starts fresh.
// On a mismatched or corrupt pair of files the network is reset to empty and the error is returned.
func (rp *RoutePlanner) Load(ctx context.Context) error {
	rp.cache.Purge()
	g, err := rp.store.LoadGraph(ctx)
	if errors.Is(err, util.ErrNotFound) {
		rp.log.Info("no existing graph data found, starting fresh")
		rp.graph = da.NewRouteGraph()
		return nil
	}
	if err != nil {
		rp.log.Error("error loading graph data", zap.Error(err))
		rp.graph = da.NewRouteGraph()
		return err
	}
	rp.graph = g
	return nil
}

func (rp *RoutePlanner) Save(ctx context.Context) error {
	if err := rp.store.SaveGraph(ctx, rp.graph); err != nil {
		rp.log.Error("error saving graph data", zap.Error(err))
		return err
	}
	return nil
}
