package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// HeaderOwnerID carries the owner when no JWT secret is configured.
const HeaderOwnerID = "X-Owner-ID"

const ownerKey = "owner"

var errNoOwner = fiber.NewError(fiber.StatusUnauthorized, "missing or invalid owner")

// ownerMiddleware resolves the request owner and stores it in locals. With a
// secret, the owner is the sub claim of an HS256 bearer token; otherwise it
// is the X-Owner-ID header.
func ownerMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var owner string
		if len(secret) > 0 {
			sub, err := ownerFromToken(c.Get(fiber.HeaderAuthorization), secret)
			if err != nil {
				return errNoOwner
			}
			owner = sub
		} else {
			owner = strings.TrimSpace(c.Get(HeaderOwnerID))
		}
		if owner == "" {
			return errNoOwner
		}
		c.Locals(ownerKey, owner)
		return c.Next()
	}
}

func ownerFromToken(header string, secret []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", jwt.ErrTokenMalformed
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func ownerOf(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerKey).(string)
	return owner
}
