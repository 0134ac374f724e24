package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cuzradio/storectl/internal/model"
)

type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityFromToken recovers {username, role} from the access token's
// claims when the auth response omits them. The signature is not verified:
// the server issued the token and remains the source of truth, the client
// only reads what it was handed.
func IdentityFromToken(token string) (model.Identity, error) {
	var claims accessClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return model.Identity{}, err
	}
	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return model.Identity{}, errors.New("token carries no identity")
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{Username: username, Role: role}, nil
}
