package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"carlog/internal/adapters/sim"
	"carlog/internal/domain"
	"carlog/pkg/carlog"
)

// Runs the engine against a simulated adapter and streams flushed trip
// batches to stdout instead of a CSV file. No hardware needed.
func main() {
	cfg := &carlog.Config{}
	cfg.Transport.Endpoint = "sim"
	cfg.ApplyDefaults()
	cfg.Policy.PollInterval = 200 * time.Millisecond
	cfg.Policy.FlushRows = 5
	cfg.API.Addr = ""
	cfg.Metrics.Addr = "127.0.0.1:0"

	transport := sim.New(map[domain.ParamID]sim.Source{
		"rpm":     sim.Constant(840),
		"speed":   sim.Constant(52),
		"coolant": sim.Constant(88),
		"oil":     sim.Absent(),
	})

	callback := func(batch []carlog.Record) error {
		for _, rec := range batch {
			fmt.Printf("%s", rec.Timestamp.Format("15:04:05.000"))
			for _, v := range rec.Values {
				if v.Available {
					fmt.Printf(" %s=%d", v.Param, v.Value)
				} else {
					fmt.Printf(" %s=N/A", v.Param)
				}
			}
			fmt.Println()
		}
		return nil
	}

	engine, err := carlog.New(cfg,
		carlog.WithTransport(transport),
		carlog.WithSinkFactory(func(string) (carlog.RecordSink, error) {
			return carlog.NewCallbackSink("stdout", callback), nil
		}),
	)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	// Give the poller one tick to connect before opening the session.
	time.Sleep(cfg.Policy.PollInterval)
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
