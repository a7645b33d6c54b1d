package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/kataras/iris/v12"
)

func writeLockError(ctx iris.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLockNotFound):
		utils.JSONError(ctx, http.StatusNotFound, "lock_not_found", "Réservation introuvable")
	case errors.Is(err, services.ErrLockNotActive):
		utils.JSONError(ctx, http.StatusBadRequest, "lock_not_active", "La réservation n'est plus active")
	default:
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// FinalizeLock confirms a locked property was rented (staff only).
func FinalizeLock(ctx iris.Context) {
	lockID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var before models.PropertyLock
	storage.DB.First(&before, lockID)

	lock, err := lockService.Finalize(uint(lockID), time.Now().UTC())
	if err != nil {
		writeLockError(ctx, err)
		return
	}

	utils.Audit(ctx, "lock.finalize", "property_lock", lock.ID, before, lock)

	ctx.JSON(iris.Map{
		"message": "Réservation finalisée",
		"lock":    lock,
	})
}

// ReopenLock cancels an active lock and puts the listing back online
// (staff only).
func ReopenLock(ctx iris.Context) {
	lockID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var before models.PropertyLock
	storage.DB.First(&before, lockID)

	lock, err := lockService.Reopen(uint(lockID), time.Now().UTC())
	if err != nil {
		writeLockError(ctx, err)
		return
	}

	utils.Audit(ctx, "lock.reopen", "property_lock", lock.ID, before, lock)

	ctx.JSON(iris.Map{
		"message": "Réservation annulée, propriété remise en ligne",
		"lock":    lock,
	})
}

// ListLocks returns locks for the back-office, filterable by status.
func ListLocks(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.PropertyLock{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var locks []models.PropertyLock
	if err := query.Preload("Property").Preload("Renter").
		Order("locked_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&locks).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de charger les réservations")
		return
	}

	utils.JSONPage(ctx, locks, page, perPage, total)
}

// GetLock returns one lock with its property and renter.
func GetLock(ctx iris.Context) {
	lockID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var lock models.PropertyLock
	if err := storage.DB.Preload("Property").Preload("Renter").Preload("Transaction").First(&lock, lockID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "lock_not_found", "Réservation introuvable")
		return
	}

	ctx.JSON(iris.Map{"lock": lock})
}
