package main

import (
	"log"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/robfig/cron/v3"
)

// startLockSweep registers the periodic lock sweep. The sweep itself is
// stateless and idempotent, so the cadence only affects latency of
// checkpoint notifications and auto-expiry.
func startLockSweep(cfg utils.Config, sweeper *services.LockSweeper) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(cfg.SweepCron, func() {
		summary := sweeper.Run(time.Now().UTC())
		log.Printf("🧹 SWEEP (cron): processed=%d expired=%d failed=%d",
			summary.Processed, summary.Expired, summary.Failed)
	})
	if err != nil {
		log.Printf("❌ Failed to register lock sweep job: %v", err)
		return c
	}

	c.Start()
	return c
}
