package routes

import (
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/glebarez/sqlite"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// setupTestDB points storage.DB at a fresh in-memory database.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Transaction{},
		&models.PropertyLock{},
		&models.OpenHouseSlot{},
		&models.OpenHouseBooking{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	storage.DB = db
	storage.Redis = nil
}

// recordingNotifier implements services.LockNotifier for handler tests.
type recordingNotifier struct {
	mu     sync.Mutex
	events []services.LockEvent
}

func (r *recordingNotifier) DispatchLockEvent(ev services.LockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// stubGateway accepts every deposit.
type stubGateway struct {
	requests []services.DepositRequest
}

func (g *stubGateway) InitiateDeposit(req services.DepositRequest) (*services.DepositResult, error) {
	g.requests = append(g.requests, req)
	return &services.DepositResult{DepositID: req.DepositID, Status: "ACCEPTED"}, nil
}

// buildTestApp wires the real routes with a JWT verifier, a recording
// notifier and a stub gateway, mirroring main.go.
func buildTestApp(t *testing.T) (*iris.Application, *recordingNotifier, *stubGateway) {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	notifier := &recordingNotifier{}
	gateway := &stubGateway{}
	lockSvc := services.NewLockService(notifier)
	sweeper := services.NewLockSweeper(lockSvc, notifier)

	InitPaymentRoutes(gateway, lockSvc)
	InitSchedulerRoutes(sweeper, "test-sweep-secret")

	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	payments := app.Party("/api/payments")
	{
		payments.Post("/property-lock", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, InitiatePropertyLock)
		payments.Post("/callback", PaymentCallback)
		payments.Get("/{depositId}/status", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, GetPaymentStatus)
	}

	locks := app.Party("/api/locks", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware)
	{
		locks.Get("/", ListLocks)
		locks.Get("/{id:uint}", GetLock)
		locks.Post("/{id:uint}/finalize", FinalizeLock)
		locks.Post("/{id:uint}/reopen", ReopenLock)
	}

	openHouse := app.Party("/api/open-house")
	{
		openHouse.Get("/slots", ListOpenHouseSlots)
		openHouse.Post("/slots", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, CreateOpenHouseSlot)
		openHouse.Delete("/slots/{id:uint}", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, DeleteOpenHouseSlot)
		openHouse.Post("/slots/{id:uint}/book", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, BookOpenHouseSlot)
		openHouse.Post("/bookings/{id:uint}/cancel", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, CancelOpenHouseBooking)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware)
	{
		admin.Get("/properties", ListProperties)
		admin.Post("/properties/{id:uint}/publish", PublishProperty)
	}

	app.Post("/api/scheduler/lock-sweep", RunLockSweep)

	if err := app.Build(); err != nil {
		t.Fatalf("building test app: %v", err)
	}

	return app, notifier, gateway
}

func jsonID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// signTestToken returns a signed JWT for the given user id and role.
func signTestToken(id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}
