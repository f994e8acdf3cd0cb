// Command sensei-node runs a search node configured from SENSEI_*
// environment variables, overridden by flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strategist922/sensei"
	"github.com/strategist922/sensei/config"
	"github.com/strategist922/sensei/node"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.FromEnv("SENSEI")
	if err != nil {
		return err
	}

	var (
		partitions      = flag.String("partitions", "", "partitions to serve, e.g. 0,1,4-7")
		groups          = flag.String("partition-groups", "", "partitions sharing one index, e.g. 0-3;4,5")
		shutdownTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "time allowed for a clean shutdown")
	)
	flag.IntVar(&cfg.NodeID, "node-id", cfg.NodeID, "node id")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for local snapshots")
	flag.StringVar(&cfg.ExtensionDir, "extension-dir", cfg.ExtensionDir, "directory of plugin extensions")
	flag.StringVar(&cfg.Loader.JournalDir, "journal-dir", cfg.Loader.JournalDir, "update journal directory (empty: in memory)")
	flag.StringVar(&cfg.Store.Kind, "store", cfg.Store.Kind, "snapshot store: none, memory, local, s3, minio")
	flag.StringVar(&cfg.Store.Bucket, "bucket", cfg.Store.Bucket, "bucket of the s3 or minio store")
	flag.IntVar(&cfg.Index.BatchSize, "batch-size", cfg.Index.BatchSize, "events per index batch")
	flag.DurationVar(&cfg.Index.BatchDelay, "batch-delay", cfg.Index.BatchDelay, "snapshot interval")
	flag.BoolVar(&cfg.Index.Realtime, "realtime", cfg.Index.Realtime, "apply events as they arrive")
	flag.StringVar(&cfg.DefaultQueryField, "default-field", cfg.DefaultQueryField, "field searched by bare query terms")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address of the /metrics endpoint (empty: disabled)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flag.Parse()

	if *partitions != "" {
		if cfg.Partitions, err = config.ParsePartitions(*partitions); err != nil {
			return err
		}
	}
	if *groups != "" {
		if cfg.PartitionGroups, err = config.ParsePartitionGroups(*groups); err != nil {
			return err
		}
	}

	logger := sensei.ParseLogger(cfg.LogLevel, cfg.LogFormat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := sensei.Open(ctx, cfg, sensei.WithLogger(logger), sensei.WithPrometheus(reg))
	if err != nil {
		return err
	}
	if exts := n.Manager().Extensions(); len(exts) > 0 {
		logger.Info("extensions loaded", "files", exts)
	}
	if err := n.Start(ctx); err != nil {
		_ = n.Close(context.Background())
		return err
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			if n.State() != node.Started {
				http.Error(w, n.State().String(), http.StatusServiceUnavailable)
				return
			}
			fmt.Fprintln(w, "ok")
		})
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics available", "addr", cfg.MetricsAddr)
	}

	logger.Info("node running", "partitions", n.Partitions())
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	if err := n.Close(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
		return err
	}
	return nil
}
