package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/kataras/iris/v12"
)

type OpenHouseSlotInput struct {
	PropertyID uint   `json:"propertyID" validate:"required"`
	Date       string `json:"date" validate:"required"`
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
	Capacity   int    `json:"capacity"`
}

// parseClockMinutes converts "HH:MM" to minutes since midnight.
func parseClockMinutes(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// CreateOpenHouseSlot creates a visiting window for a listing (staff
// only). Validation order matters: each failure has its own code.
func CreateOpenHouseSlot(ctx iris.Context) {
	var input OpenHouseSlotInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_date", "Date invalide, format attendu YYYY-MM-DD")
		return
	}

	startMins, okStart := parseClockMinutes(input.StartTime)
	endMins, okEnd := parseClockMinutes(input.EndTime)
	if !okStart || !okEnd || startMins >= endMins {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_time_range", "Heures invalides, l'heure de début doit précéder l'heure de fin")
		return
	}

	if input.Capacity <= 0 {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_capacity", "La capacité doit être un entier positif")
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, input.PropertyID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "property_not_found", "Propriété introuvable")
		return
	}

	// Quota and overlap are re-read here, immediately before the insert.
	// Still read-then-write: a DB exclusion constraint would close the
	// remaining race but change the failure mode, so it stays out.
	if property.OpenHouseLimit != nil && *property.OpenHouseLimit > 0 {
		var count int64
		storage.DB.Model(&models.OpenHouseSlot{}).
			Where("property_id = ?", property.ID).
			Count(&count)
		if count >= int64(*property.OpenHouseLimit) {
			utils.JSONError(ctx, http.StatusConflict, "limit_reached", "Quota de créneaux atteint pour cette propriété")
			return
		}
	}

	var sameDay []models.OpenHouseSlot
	storage.DB.
		Where("property_id = ? AND date = ?", property.ID, date).
		Find(&sameDay)
	for _, existing := range sameDay {
		exStart, _ := parseClockMinutes(existing.StartTime)
		exEnd, _ := parseClockMinutes(existing.EndTime)
		// Half-open intervals: touching boundaries do not overlap.
		if startMins < exEnd && endMins > exStart {
			utils.JSONError(ctx, http.StatusConflict, "time_overlap", "Ce créneau chevauche un créneau existant")
			return
		}
	}

	slot := models.OpenHouseSlot{
		PropertyID: property.ID,
		Date:       date,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		Capacity:   input.Capacity,
	}
	if err := storage.DB.Create(&slot).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de créer le créneau")
		return
	}

	utils.Audit(ctx, "open_house.create_slot", "open_house_slot", slot.ID, nil, slot)

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"slot": slot})
}

// DeleteOpenHouseSlot removes a slot by id (staff only). No cascading
// validation; bookings are an external collaborator's concern.
func DeleteOpenHouseSlot(ctx iris.Context) {
	slotID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var slot models.OpenHouseSlot
	if err := storage.DB.First(&slot, slotID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "slot_not_found", "Créneau introuvable")
		return
	}

	if err := storage.DB.Delete(&slot).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de supprimer le créneau")
		return
	}

	utils.Audit(ctx, "open_house.delete_slot", "open_house_slot", slot.ID, slot, nil)

	ctx.JSON(iris.Map{"message": "Créneau supprimé"})
}

// ListOpenHouseSlots lists slots, filterable by property and date range,
// ordered by date then start time.
func ListOpenHouseSlots(ctx iris.Context) {
	query := storage.DB.Model(&models.OpenHouseSlot{})

	if propertyID := ctx.URLParam("propertyID"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}
	if startDate := ctx.URLParam("startDate"); startDate != "" {
		if parsed, err := time.Parse("2006-01-02", startDate); err == nil {
			query = query.Where("date >= ?", parsed)
		}
	}
	if endDate := ctx.URLParam("endDate"); endDate != "" {
		if parsed, err := time.Parse("2006-01-02", endDate); err == nil {
			query = query.Where("date <= ?", parsed)
		}
	}

	var slots []models.OpenHouseSlot
	if err := query.Order("date ASC, start_time ASC").Find(&slots).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de charger les créneaux")
		return
	}

	ctx.JSON(iris.Map{"slots": slots})
}

type OpenHouseBookingInput struct {
	Notes string `json:"notes"`
}

// BookOpenHouseSlot books a visit against a slot's capacity.
func BookOpenHouseSlot(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)
	slotID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var input OpenHouseBookingInput
	ctx.ReadJSON(&input) // body optional

	var slot models.OpenHouseSlot
	if err := storage.DB.First(&slot, slotID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "slot_not_found", "Créneau introuvable")
		return
	}

	var existing models.OpenHouseBooking
	if err := storage.DB.
		Where("slot_id = ? AND visitor_id = ? AND status = ?", slot.ID, userID, models.OpenHouseBookingConfirmed).
		First(&existing).Error; err == nil {
		utils.JSONError(ctx, http.StatusConflict, "already_booked", "Vous avez déjà réservé ce créneau")
		return
	}

	var occupancy int64
	storage.DB.Model(&models.OpenHouseBooking{}).
		Where("slot_id = ? AND status = ?", slot.ID, models.OpenHouseBookingConfirmed).
		Count(&occupancy)
	if occupancy >= int64(slot.Capacity) {
		utils.JSONError(ctx, http.StatusConflict, "slot_full", "Ce créneau est complet")
		return
	}

	booking := models.OpenHouseBooking{
		SlotID:    slot.ID,
		VisitorID: userID,
		Status:    models.OpenHouseBookingConfirmed,
		Notes:     input.Notes,
	}
	if err := storage.DB.Create(&booking).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de réserver le créneau")
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"booking": booking})
}

// CancelOpenHouseBooking lets a visitor cancel their own booking.
func CancelOpenHouseBooking(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)
	bookingID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var booking models.OpenHouseBooking
	if err := storage.DB.First(&booking, bookingID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "booking_not_found", "Réservation de visite introuvable")
		return
	}

	if booking.VisitorID != userID {
		utils.JSONError(ctx, http.StatusForbidden, "forbidden", "Accès refusé")
		return
	}

	if booking.Status == models.OpenHouseBookingCancelled {
		ctx.JSON(iris.Map{"booking": booking})
		return
	}

	booking.Status = models.OpenHouseBookingCancelled
	if err := storage.DB.Save(&booking).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible d'annuler la réservation")
		return
	}

	ctx.JSON(iris.Map{"booking": booking})
}
