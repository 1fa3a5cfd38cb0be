package main

import (
	"flag"
	"log"
	"runtime"

	"terrastream/internal/meshing"
	"terrastream/internal/streaming"
	"terrastream/internal/telemetry"
	"terrastream/internal/worldgen"
)

func main() {
	var (
		configPath = flag.String("config", "", "streaming config file (yaml); defaults apply when empty")
		ticks      = flag.Int("ticks", 600, "number of ticks to run")
		seed       = flag.Int64("seed", 1337, "world seed")
		reportPath = flag.String("report", "", "diagnostic report file (zstd jsonl); disabled when empty")
	)
	flag.Parse()

	cfg, err := streaming.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	streamer, err := streaming.NewStreamer(cfg, worldgen.NewNoiseGenerator(*seed))
	if err != nil {
		log.Fatalf("init streamer: %v", err)
	}

	pool := meshing.NewMeshPool(runtime.NumCPU(), cfg.MaxLoadedChunks)
	defer pool.Close()

	var sink *telemetry.Sink
	if *reportPath != "" {
		sink, err = telemetry.NewSink(*reportPath)
		if err != nil {
			log.Fatalf("init telemetry sink: %v", err)
		}
		defer sink.Close()
	}

	log.Printf("terrastream: seed %d, view %d, prefetch %d, max %d chunks, %d workers",
		*seed, cfg.ViewDistance, cfg.PrefetchDistance, cfg.MaxLoadedChunks, runtime.NumCPU())

	NewSession(cfg, streamer, pool, sink).Run(*ticks)
}
