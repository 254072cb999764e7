// Spins up the graphcache server: a bounded in-memory cache of migration analysis graphs, inspectable over the Redis
// protocol and observable through Prometheus metrics.

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nobletooth/graphcache/pkg/config"
	"github.com/nobletooth/graphcache/pkg/graph"
	"github.com/nobletooth/graphcache/pkg/port"
	"github.com/nobletooth/graphcache/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var printVersion = flag.Bool("print_version", false, "Print the version and exit.")

func main() {
	config.InitFlags()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Graphcache build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := graph.NewSourceFromFlags()
	if err != nil {
		slog.Error("Failed to open graph source.", "err", err)
		os.Exit(1)
	}
	// The one graph cache of this process; everything that needs it gets this instance.
	service := graph.NewService(graph.NewCache(), source)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return port.RunMetricsServer(groupCtx) })
	group.Go(func() error { return port.RunRedisServer(groupCtx, service) })
	err = group.Wait()
	slog.Info("Graphcache stopped.", "cache", service.Describe(), "cachedGraphs", service.Len(),
		"uptime", utils.Uptime())
	if err != nil {
		slog.Error("Graphcache server failed.", "err", err)
		os.Exit(1)
	}
}
