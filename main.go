package main

import (
	"fmt"
	"log"
	"os"

	"github.com/saliftankoano/roogo-web-sub000/routes"
	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	storage.InitializeDB()
	storage.InitializeRedis()

	cfg := utils.LoadConfig()

	pusher := services.ExpoPusher{URL: cfg.PushURL}
	notifier := services.NewNotificationService(pusher)
	lockService := services.NewLockService(notifier)
	sweeper := services.NewLockSweeper(lockService, notifier)
	gateway := services.NewPaymentGateway(cfg)

	routes.InitPaymentRoutes(gateway, lockService)
	routes.InitSchedulerRoutes(sweeper, cfg.SweepSecret)

	// In-process sweep cadence; the HTTP endpoint stays available for an
	// external trigger as well.
	sweepCron := startLockSweep(cfg, sweeper)
	defer sweepCron.Stop()

	app := iris.New()

	// CORS for the back-office dashboard
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Sweep-Secret")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	payments := app.Party("/api/payments")
	{
		payments.Post("/property-lock", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.InitiatePropertyLock)
		payments.Post("/callback", routes.PaymentCallback)
		payments.Get("/{depositId}/status", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetPaymentStatus)
	}

	locks := app.Party("/api/locks", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware)
	{
		locks.Get("/", routes.ListLocks)
		locks.Get("/{id:uint}", routes.GetLock)
		locks.Post("/{id:uint}/finalize", routes.FinalizeLock)
		locks.Post("/{id:uint}/reopen", routes.ReopenLock)
	}

	openHouse := app.Party("/api/open-house")
	{
		openHouse.Get("/slots", routes.ListOpenHouseSlots)
		openHouse.Post("/slots", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, routes.CreateOpenHouseSlot)
		openHouse.Delete("/slots/{id:uint}", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, routes.DeleteOpenHouseSlot)
		openHouse.Post("/slots/{id:uint}/book", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.BookOpenHouseSlot)
		openHouse.Post("/bookings/{id:uint}/cancel", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CancelOpenHouseBooking)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware)
	{
		admin.Get("/properties", routes.ListProperties)
		admin.Post("/properties/{id:uint}/publish", routes.PublishProperty)
	}

	devices := app.Party("/api/devices", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		devices.Post("/push-token", routes.RegisterPushToken)
		devices.Delete("/push-token", routes.UnregisterPushToken)
	}

	app.Post("/api/scheduler/lock-sweep", routes.RunLockSweep)

	addr := "0.0.0.0:" + cfg.Port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
