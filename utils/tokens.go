package utils

import (
	"os"
	"time"

	"github.com/kataras/iris/v12/middleware/jwt"
)

// AccessToken is the claim set minted by the identity service. This
// server only verifies tokens; it never issues them to end users.
type AccessToken struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

func CreateAccessToken(id uint, role string) (string, error) {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)

	claims := AccessToken{
		ID:   id,
		Role: role,
	}

	token, err := signer.Sign(claims)
	if err != nil {
		return "", err
	}

	return string(token), nil
}
