package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// DepositInitiator is what the payment routes need from the gateway
// client; tests substitute a stub.
type DepositInitiator interface {
	InitiateDeposit(req services.DepositRequest) (*services.DepositResult, error)
}

var (
	paymentGateway DepositInitiator
	lockService    *services.LockService
)

// InitPaymentRoutes wires the gateway client and lock service used by the
// payment handlers.
func InitPaymentRoutes(gateway DepositInitiator, locks *services.LockService) {
	paymentGateway = gateway
	lockService = locks
}

type PropertyLockInput struct {
	PropertyID  uint   `json:"propertyID" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Provider    string `json:"provider" validate:"required,oneof=orange_money moov_money"`
}

// InitiatePropertyLock starts an Early-Bird lock purchase: eligibility
// gate, fee computation, pending ledger row, then the gateway call.
func InitiatePropertyLock(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input PropertyLockInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !utils.ValidatePhoneNumber(input.PhoneNumber) {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_phone", "Numéro de téléphone invalide")
		return
	}
	phone := utils.FormatPhoneNumber(input.PhoneNumber)

	var property models.Property
	if err := storage.DB.First(&property, input.PropertyID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "property_not_found", "Propriété introuvable")
		return
	}

	now := time.Now().UTC()
	if err := lockService.CheckEligibility(&property, now); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, err.Error(), "Cette propriété n'est pas éligible au verrouillage Early Bird")
		return
	}

	fee := services.LockFee(property.Price)
	depositID := uuid.NewString()

	transaction := models.Transaction{
		DepositID:   depositID,
		Amount:      fee,
		Currency:    property.Currency,
		Status:      models.TransactionStatusPending,
		Type:        models.TransactionTypePropertyLock,
		PropertyID:  &property.ID,
		UserID:      &userID,
		PhoneNumber: phone,
		Provider:    input.Provider,
	}
	if err := storage.DB.Create(&transaction).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "transaction_failed", "Impossible d'enregistrer la transaction")
		return
	}

	result, err := paymentGateway.InitiateDeposit(services.DepositRequest{
		DepositID:   depositID,
		Amount:      fee,
		Currency:    property.Currency,
		PhoneNumber: phone,
		Provider:    input.Provider,
		Description: "Reservation Early Bird: " + property.Title,
	})
	if err != nil {
		reason := err.Error()
		if result != nil && result.FailureReason != "" {
			reason = result.FailureReason
		}
		storage.DB.Model(&transaction).Updates(map[string]interface{}{
			"status":         models.TransactionStatusFailed,
			"failure_reason": reason,
		})
		// The gateway's own failure message passes through, not swallowed.
		utils.JSONError(ctx, http.StatusBadGateway, "gateway_error", reason)
		return
	}

	if mapped := services.MapDepositStatus(result.Status); mapped != models.TransactionStatusPending {
		storage.DB.Model(&transaction).Update("status", mapped)
		transaction.Status = mapped
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"depositId": depositID,
		"amount":    fee,
		"currency":  property.Currency,
		"status":    transaction.Status,
	})
}

type DepositCallbackInput struct {
	DepositID     string `json:"depositId" validate:"required"`
	Status        string `json:"status" validate:"required"`
	FailureReason string `json:"failureReason"`
}

// PaymentCallback receives the gateway's asynchronous deposit updates.
// Delivery is at-least-once: the ledger status is the authoritative
// idempotency guard, Redis only dedupes the fast path.
func PaymentCallback(ctx iris.Context) {
	var input DepositCallbackInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	dedupeKey := "deposit-callback:" + input.DepositID + ":" + input.Status
	if storage.Redis != nil {
		set, err := storage.Redis.SetNX(context.Background(), dedupeKey, 1, 10*time.Minute).Result()
		if err == nil && !set {
			ctx.JSON(iris.Map{"status": "duplicate"})
			return
		}
	}

	var transaction models.Transaction
	if err := storage.DB.Where("deposit_id = ?", input.DepositID).First(&transaction).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "unknown_deposit", "Dépôt inconnu")
		return
	}

	// Terminal statuses are flipped exactly once.
	switch transaction.Status {
	case models.TransactionStatusCompleted, models.TransactionStatusFailed, models.TransactionStatusRefunded:
		ctx.JSON(iris.Map{"status": transaction.Status, "processed": false})
		return
	}

	newStatus := services.MapDepositStatus(input.Status)
	rawPayload, _ := json.Marshal(input)

	// The lock is created before the ledger row turns terminal: if
	// creation errors here, the status stays pending and the next
	// delivery of the same callback retries it.
	if newStatus == models.TransactionStatusCompleted && transaction.Type == models.TransactionTypePropertyLock {
		if err := lockService.HandleDepositCompleted(&transaction, time.Now().UTC()); err != nil {
			if storage.Redis != nil {
				storage.Redis.Del(context.Background(), dedupeKey)
			}
			utils.JSONError(ctx, http.StatusInternalServerError, "lock_creation_failed", err.Error())
			return
		}
	}

	updates := map[string]interface{}{
		"status":   newStatus,
		"metadata": rawPayload,
	}
	if newStatus == models.TransactionStatusFailed && input.FailureReason != "" {
		updates["failure_reason"] = input.FailureReason
	}
	if err := storage.DB.Model(&transaction).Updates(updates).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "update_failed", "Impossible de mettre à jour la transaction")
		return
	}
	transaction.Status = newStatus

	ctx.JSON(iris.Map{"status": newStatus, "processed": true})
}

// GetPaymentStatus polls a transaction by deposit id. Only the paying
// user or staff can read it.
func GetPaymentStatus(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	depositID := ctx.Params().Get("depositId")

	var transaction models.Transaction
	if err := storage.DB.Where("deposit_id = ?", depositID).First(&transaction).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "unknown_deposit", "Dépôt inconnu")
		return
	}

	isStaff := claims.Role == "admin" || claims.Role == "super_admin"
	if !isStaff && (transaction.UserID == nil || *transaction.UserID != claims.ID) {
		utils.JSONError(ctx, http.StatusForbidden, "forbidden", "Accès refusé")
		return
	}

	ctx.JSON(iris.Map{
		"depositId":     transaction.DepositID,
		"status":        transaction.Status,
		"amount":        transaction.Amount,
		"currency":      transaction.Currency,
		"failureReason": transaction.FailureReason,
	})
}
