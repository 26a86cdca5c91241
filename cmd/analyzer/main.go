package main

import (
	"context"
	"flag"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"imapflow/internal/conf"
	"imapflow/internal/flow"
	"imapflow/internal/ingest"
	"imapflow/internal/ingest/replay"
	"imapflow/internal/sink"
)

func main() {
	fixturePath := flag.String("fixture", "", "path to a newline-delimited JSON packet fixture to replay")
	flag.Parse()

	cfg, err := conf.LoadConfig()
	if err != nil {
		log.Printf("analyzer: no config file found, using defaults: %v", err)
		cfg = defaultConfig()
	}

	shardCount := runtime.GOMAXPROCS(0)
	shards := make([]*flow.Table, shardCount)
	for i := range shards {
		shards[i] = flow.NewTable(cfg.BufferCapacityBytes, cfg.FlowIdleTimeoutMS, cfg.BucketIntervalMS,
			func(format string, args ...any) { log.Printf(format, args...) })
	}

	registry := prometheus.NewRegistry()
	for i, shard := range shards {
		if err := registry.Register(flow.NewMetrics(shard)); err != nil {
			log.Fatalf("analyzer: registering metrics for shard %d: %v", i, err)
		}
	}

	var src ingest.Source
	if *fixturePath != "" {
		f, err := os.Open(*fixturePath)
		if err != nil {
			log.Fatalf("analyzer: opening fixture: %v", err)
		}
		defer f.Close()
		src = replay.New(f)
	} else {
		log.Println("analyzer: no -fixture given, running metrics server only")
	}

	observer := sink.NewLineWriter(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{Addr: cfg.MetricsListenAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
	g.Go(func() error {
		<-ctx.Done()
		return server.Close()
	})
	g.Go(func() error {
		log.Printf("analyzer: metrics listening on %s", cfg.MetricsListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if src != nil {
		g.Go(func() error {
			return runIngest(ctx, src, shards, observer)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("analyzer: %v", err)
	}
}

// runIngest pulls Packets from src until ctx is cancelled or the source
// is exhausted, routing each to shards[shardIndex(tuple)] so that both
// directions of a connection reach the same Table. Every shard is driven
// from this one goroutine, in packet order; no cross-shard locking.
func runIngest(ctx context.Context, src ingest.Source, shards []*flow.Table, observer sink.Sink) error {
	for {
		pkt, err := src.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		shard := shards[shardIndex(pkt.Tuple, len(shards))]
		if err := shard.Process(pkt.Direction, pkt.Tuple, pkt.Payload, pkt.TimestampMS, observer); err != nil {
			log.Printf("analyzer: processing packet: %v", err)
		}
	}
}

// shardIndex hashes the ingress tuple (not yet normalized; both
// directions of one connection must land on the same shard, so the two
// endpoint hashes are XOR-combined, making the result symmetric
// regardless of which side is nominally "src" on the wire) to a shard
// index.
func shardIndex(t flow.FourTuple, shardCount int) int {
	srcSum := hashEndpoint(t.SrcIP, t.SrcPort)
	dstSum := hashEndpoint(t.DstIP, t.DstPort)
	return int((srcSum ^ dstSum) % uint32(shardCount))
}

func hashEndpoint(ip flow.IP, port uint16) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip.String()))
	_, _ = h.Write([]byte{byte(port >> 8), byte(port)})
	return h.Sum32()
}

func defaultConfig() *conf.Config {
	return &conf.Config{
		BufferCapacityBytes: 10 * 1024 * 1024,
		FlowIdleTimeoutMS:   120_000,
		BucketIntervalMS:    1_000,
		MetricsListenAddr:   ":9469",
	}
}
