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

// PublishProperty puts a listing en_ligne and opens its 48h Early-Bird
// window (staff only). Locked or finalized listings cannot be published
// over.
func PublishProperty(ctx iris.Context) {
	propertyID, _ := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)

	var property models.Property
	if err := storage.DB.First(&property, propertyID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "property_not_found", "Propriété introuvable")
		return
	}

	if property.Status == models.PropertyStatusLocked || property.Status == models.PropertyStatusFinalized {
		utils.JSONError(ctx, http.StatusBadRequest, "ineligible_status", "Cette propriété ne peut pas être publiée")
		return
	}

	before := property
	now := time.Now().UTC()
	property.Status = models.PropertyStatusPublished
	property.PublishedAt = &now

	if err := storage.DB.Save(&property).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de publier la propriété")
		return
	}

	utils.Audit(ctx, "property.publish", "property", property.ID, before, property)

	ctx.JSON(iris.Map{
		"message":  "Propriété publiée",
		"property": property,
	})
}

// ListProperties lists listings for the back-office, filterable by status.
func ListProperties(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Property{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var properties []models.Property
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&properties).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de charger les propriétés")
		return
	}

	utils.JSONPage(ctx, properties, page, perPage, total)
}
