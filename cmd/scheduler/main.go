package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lintang-b-s/transitscheduler/pkg/logger"
	"github.com/lintang-b-s/transitscheduler/pkg/scheduler"
	"github.com/lintang-b-s/transitscheduler/pkg/storage"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config", "./data", "directory containing config.yaml")
	verbose   = flag.Bool("verbose", false, "development logging")
	action    = flag.String("action", "bfs", "one of: stop, connect, bfs, dfs, reachable, route, find, depart, departures, window")
	from      = flag.String("from", "", "starting stop")
	to        = flag.String("to", "", "ending stop")
	routeID   = flag.Int("id", 0, "route id")
	routeDesc = flag.String("desc", "", "route description")
	departure = flag.Int("time", 0, "departure time as hhmm without leading zero, e.g. 915")
	windowLo  = flag.Int("lo", 0, "window start (inclusive)")
	windowHi  = flag.Int("hi", 2359, "window end (inclusive)")
)

func main() {
	flag.Parse()

	var (
		log *zap.Logger
		err error
	)
	if *verbose {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := util.ReadConfig(*configDir)
	if err != nil {
		panic(err)
	}

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("scheduler action failed", zap.String("action", *action), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *util.Config, log *zap.Logger) error {
	store := storage.NewStore(cfg.Storage, log)
	planner, err := scheduler.NewRoutePlanner(store, cfg.Planner.CacheSize, log)
	if err != nil {
		return err
	}
	timetable, err := scheduler.NewTimetable(cfg, store, planner, log)
	if err != nil {
		return err
	}

	if err := planner.Load(ctx); err != nil {
		return err
	}
	if err := timetable.Load(ctx); err != nil {
		return err
	}

	switch *action {
	case "stop":
		added, err := planner.AddStop(*from)
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("Point %s already exists\n", *from)
			return nil
		}
		fmt.Printf("Point added: %s\n", *from)
		return planner.Save(ctx)

	case "connect":
		if err := planner.AddConnectedStop(*from, *to); err != nil {
			return err
		}
		fmt.Printf("Connection added: %s -> %s\n", *from, *to)
		return planner.Save(ctx)

	case "bfs", "dfs":
		traverse := planner.SuggestedRoutes
		if *action == "dfs" {
			traverse = planner.AlternativeRoutes
		}
		order, err := traverse(*from)
		if errors.Is(err, util.ErrNotFound) {
			fmt.Printf("Starting point %s not found\n", *from)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(order, " -> "))
		return nil

	case "reachable":
		ok, err := planner.IsConnected(*from, *to)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s reachable: %t\n", *from, *to, ok)
		return nil

	case "route":
		if !timetable.AddRoute(*routeID, *routeDesc) {
			fmt.Printf("Route %d already exists\n", *routeID)
			return nil
		}
		fmt.Printf("Route added: %d\n", *routeID)
		return timetable.Save(ctx)

	case "find":
		desc, ok := timetable.SearchRoute(*routeID)
		if !ok {
			fmt.Println("Route not found.")
			return nil
		}
		fmt.Printf("Route found: %s\n", desc)
		return nil

	case "depart":
		if !timetable.AddDepartureTime(*departure) {
			fmt.Printf("Departure %d already scheduled\n", *departure)
			return nil
		}
		fmt.Printf("Departure added: %d\n", *departure)
		return timetable.Save(ctx)

	case "departures":
		fmt.Println("All Departure Times:")
		printDepartures(timetable.DepartureTimes())
		return nil

	case "window":
		printDepartures(timetable.DeparturesBetween(*windowLo, *windowHi))
		return nil
	}

	return util.NewErrorf(util.ErrInvalidArgument, "unknown action %q", *action)
}

func printDepartures(departures []int) {
	for _, d := range departures {
		fmt.Printf("%04d\n", d)
	}
}
