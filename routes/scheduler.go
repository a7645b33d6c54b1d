package routes

import (
	"net/http"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/kataras/iris/v12"
)

var (
	lockSweeper *services.LockSweeper
	sweepSecret string
)

// InitSchedulerRoutes wires the sweeper and the optional shared secret
// checked on the sweep endpoint.
func InitSchedulerRoutes(sweeper *services.LockSweeper, secret string) {
	lockSweeper = sweeper
	sweepSecret = secret
}

// RunLockSweep is the externally triggered sweep entry point. Idempotent;
// always returns the run summary, even with partial failures inside the
// batch.
func RunLockSweep(ctx iris.Context) {
	if sweepSecret != "" && ctx.GetHeader("X-Sweep-Secret") != sweepSecret {
		utils.JSONError(ctx, http.StatusUnauthorized, "unauthorized", "invalid sweep secret")
		return
	}

	summary := lockSweeper.Run(time.Now().UTC())
	ctx.JSON(summary)
}
