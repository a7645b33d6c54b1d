package routes

import (
	"encoding/json"
	"net/http"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/storage"
	"github.com/saliftankoano/roogo-web-sub000/utils"

	"github.com/kataras/iris/v12"
)

type PushTokenInput struct {
	Token string `json:"token" validate:"required"`
}

// RegisterPushToken stores a device push token on the authenticated
// user. Idempotent on the token value.
func RegisterPushToken(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input PushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "user_not_found", "Utilisateur introuvable")
		return
	}

	var tokens []string
	if user.PushTokens != nil {
		json.Unmarshal(user.PushTokens, &tokens)
	}

	for _, existing := range tokens {
		if existing == input.Token {
			ctx.JSON(iris.Map{"message": "Token déjà enregistré"})
			return
		}
	}

	tokens = append(tokens, input.Token)
	raw, _ := json.Marshal(tokens)
	allows := true

	if err := storage.DB.Model(&user).Updates(map[string]interface{}{
		"push_tokens":          raw,
		"allows_notifications": &allows,
	}).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible d'enregistrer le token")
		return
	}

	ctx.JSON(iris.Map{"message": "Token enregistré"})
}

// UnregisterPushToken removes a device push token from the authenticated
// user.
func UnregisterPushToken(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input PushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "user_not_found", "Utilisateur introuvable")
		return
	}

	var tokens []string
	if user.PushTokens != nil {
		json.Unmarshal(user.PushTokens, &tokens)
	}

	kept := make([]string, 0, len(tokens))
	for _, existing := range tokens {
		if existing != input.Token {
			kept = append(kept, existing)
		}
	}

	raw, _ := json.Marshal(kept)
	if err := storage.DB.Model(&user).Update("push_tokens", raw).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "internal_error", "Impossible de supprimer le token")
		return
	}

	ctx.JSON(iris.Map{"message": "Token supprimé"})
}
