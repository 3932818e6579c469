package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/barangay-nit/eservices/internal/app"
	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("lapse-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("lapse-worker needs the postgres store; the memory store is private to one process")
	}

	log.Printf("running lapse worker in env=%s schedule=%q tz=%s", cfg.Env, cfg.LapseSchedule, cfg.OfficeLocation)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(rootCtx, cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Appointments)

	c := cron.New(
		cron.WithLocation(cfg.OfficeLocation),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(cfg.LapseSchedule, func() { runOnce(rootCtx, a.Appointments) }); err != nil {
		log.Fatalf("invalid LAPSE_SCHEDULE %q: %v", cfg.LapseSchedule, err)
	}
	c.Start()

	<-rootCtx.Done()
	log.Println("shutdown signal received, stopping lapse worker")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.LapsePending(runCtx)
	if err != nil {
		log.Printf("lapse run error: %v", err)
		return
	}
	log.Printf("lapse run complete lapsed=%d in %s", n, time.Since(start))
}
