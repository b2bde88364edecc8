package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"carlog"
)

// Fans flushed trip batches out through a channel to a downstream worker.
func main() {
	cfg, err := carlog.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, batches, closeBatches := carlog.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	engine, err := carlog.New(cfg, carlog.WithSinkFactory(func(string) (carlog.RecordSink, error) {
		return sink, nil
	}))
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	if _, err := engine.StartLogging(""); err != nil {
		log.Printf("start logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []carlog.Record) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d records at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
		// TODO: forward to downstream DB/API.
	}
}
